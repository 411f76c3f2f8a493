package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/khoahotran/personal-site/pkg/apperror"
)

// Resource is one REST collection such as /experiences.
type Resource struct {
	client     *Client
	collection string
	public     bool
}

func (r *Resource) Collection() string { return r.collection }

func (r *Resource) List(ctx context.Context, params url.Values) ([]byte, error) {
	return r.client.Do(ctx, http.MethodGet, r.collection, params, nil)
}

func (r *Resource) Get(ctx context.Context, id string) ([]byte, error) {
	return r.client.Do(ctx, http.MethodGet, r.path(id), nil, nil)
}

func (r *Resource) Create(ctx context.Context, body Body) ([]byte, error) {
	return r.client.Do(ctx, http.MethodPost, r.collection, nil, body)
}

// CreatePublic posts without the bearer, as the public contact form does.
func (r *Resource) CreatePublic(ctx context.Context, body Body) ([]byte, error) {
	return r.client.Do(WithoutBearer(ctx), http.MethodPost, r.collection, nil, body)
}

// Update sends a partial update.
func (r *Resource) Update(ctx context.Context, id string, body Body) ([]byte, error) {
	return r.client.Do(ctx, http.MethodPatch, r.path(id), nil, body)
}

func (r *Resource) Delete(ctx context.Context, id string) error {
	_, err := r.client.Do(ctx, http.MethodDelete, r.path(id), nil, nil)
	return err
}

// ListPublic reads the unauthenticated, published-only list. Items come back
// without a published field.
func (r *Resource) ListPublic(ctx context.Context) ([]byte, error) {
	if !r.public {
		return nil, apperror.NewNotFound("public endpoint", r.collection)
	}
	return r.client.Do(WithoutBearer(ctx), http.MethodGet, r.collection+"/public", nil, nil)
}

func (r *Resource) GetPublic(ctx context.Context, id string) ([]byte, error) {
	if !r.public {
		return nil, apperror.NewNotFound("public endpoint", r.collection)
	}
	return r.client.Do(WithoutBearer(ctx), http.MethodGet, r.collection+"/public/"+url.PathEscape(id), nil, nil)
}

func (r *Resource) path(id string) string {
	return r.collection + "/" + url.PathEscape(id)
}

// Admin groups the /admin endpoints.
type Admin struct {
	client *Client
}

func (a *Admin) Login(ctx context.Context, email, password string) ([]byte, error) {
	return a.client.Do(WithoutBearer(ctx), http.MethodPost, "admin/login", nil, JSONBody{"email": email, "password": password})
}

func (a *Admin) Logout(ctx context.Context) error {
	_, err := a.client.Do(ctx, http.MethodPost, "admin/logout", nil, nil)
	return err
}

// Me reports the signed-in admin. Pass a context from WithoutBearer to probe the cookie session alone.
func (a *Admin) Me(ctx context.Context) ([]byte, error) {
	return a.client.Do(ctx, http.MethodGet, "admin/me", nil, nil)
}

func (a *Admin) Update(ctx context.Context, body Body) ([]byte, error) {
	return a.client.Do(ctx, http.MethodPatch, "admin/update", nil, body)
}

// Status is the public admin profile, qualifications included.
func (a *Admin) Status(ctx context.Context) ([]byte, error) {
	return a.client.Do(WithoutBearer(ctx), http.MethodGet, "admin/status", nil, nil)
}

func (a *Admin) Resume(ctx context.Context) ([]byte, error) {
	return a.client.Do(WithoutBearer(ctx), http.MethodGet, "admin/resume", nil, nil)
}
