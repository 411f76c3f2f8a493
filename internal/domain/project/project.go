package project

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/coerce"
)

type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

type Project struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Description string      `json:"description,omitempty"`
	TechStack   coerce.List `json:"techStack"`
	Features    coerce.List `json:"features"`
	Outcome     string      `json:"outcome,omitempty"`
	RepoURL     string      `json:"repoUrl,omitempty"`
	DemoURL     string      `json:"demoUrl,omitempty"`
	Featured    bool        `json:"featured"`
	Status      Status      `json:"status"`
	Order       int         `json:"order"`
	Published   *bool       `json:"published,omitempty"`
	Thumbnail   string      `json:"thumbnail,omitempty"`
	Images      coerce.List `json:"images"`
	CreatedAt   coerce.Date `json:"createdAt"`
	UpdatedAt   coerce.Date `json:"updatedAt"`
}

func (p Project) Key() string        { return p.ID }
func (p Project) SortOrder() int     { return p.Order }
func (p Project) IsPublished() bool  { return domain.Published(p.Published) }
func (p Project) Created() time.Time { return p.CreatedAt.Time }

var (
	ErrInvalidSlug   = errors.New("slug only allows lowercase letters, numbers, and hyphens")
	ErrInvalidStatus = errors.New("invalid project status")
	slugRegex        = regexp.MustCompile(`^[a-z0-9-]+$`)
)

type Form struct {
	Title       string `json:"title" yaml:"title"`
	Slug        string `json:"slug" yaml:"slug"`
	Description string `json:"description" yaml:"description"`
	TechStack   string `json:"techStack" yaml:"techStack"`
	Features    string `json:"features" yaml:"features"`
	Outcome     string `json:"outcome" yaml:"outcome"`
	RepoURL     string `json:"repoUrl" yaml:"repoUrl"`
	DemoURL     string `json:"demoUrl" yaml:"demoUrl"`
	Featured    bool   `json:"featured" yaml:"featured"`
	Status      Status `json:"status" yaml:"status"`
	Order       int    `json:"order" yaml:"order"`
	Published   bool   `json:"published" yaml:"published"`
}

type Schema struct{}

func (Schema) Collection() string   { return domain.CollectionProjects }
func (Schema) Noun() string         { return "project" }
func (Schema) ReadOnly() bool       { return false }
func (Schema) FileFields() []string { return []string{"thumbnail", "images"} }

func (Schema) NewForm(nextOrder int) Form {
	return Form{Status: StatusPlanned, Order: nextOrder, Published: true}
}

func (Schema) FormFrom(p Project) Form {
	status := p.Status
	if status == "" {
		status = StatusPlanned
	}
	return Form{
		Title:       p.Title,
		Slug:        p.Slug,
		Description: p.Description,
		TechStack:   coerce.FormatArray(p.TechStack),
		Features:    coerce.FormatArray(p.Features),
		Outcome:     p.Outcome,
		RepoURL:     p.RepoURL,
		DemoURL:     p.DemoURL,
		Featured:    p.Featured,
		Status:      status,
		Order:       p.Order,
		Published:   p.IsPublished(),
	}
}

func (Schema) Validate(f Form) error {
	if strings.TrimSpace(f.Title) == "" {
		return apperror.NewInvalidInput("Title is required", nil)
	}
	slug := coerce.Slugify(f.Slug)
	if slug == "" {
		return apperror.NewInvalidInput("Slug is required", nil)
	}
	if !slugRegex.MatchString(slug) {
		return apperror.NewInvalidInput(ErrInvalidSlug.Error(), ErrInvalidSlug)
	}
	if f.Status != "" && !f.Status.Valid() {
		return apperror.NewInvalidInput(ErrInvalidStatus.Error(), ErrInvalidStatus)
	}
	return nil
}

// Payload normalises the slug to kebab-case; uniqueness is left to the server.
func (Schema) Payload(f Form) map[string]any {
	status := f.Status
	if status == "" {
		status = StatusPlanned
	}
	p := map[string]any{
		"title":     strings.TrimSpace(f.Title),
		"slug":      coerce.Slugify(f.Slug),
		"techStack": coerce.ToArray(f.TechStack),
		"features":  coerce.ToArray(f.Features),
		"featured":  f.Featured,
		"status":    string(status),
		"order":     f.Order,
		"published": f.Published,
	}
	optional := map[string]string{
		"description": f.Description,
		"outcome":     f.Outcome,
		"repoUrl":     f.RepoURL,
		"demoUrl":     f.DemoURL,
	}
	for k, v := range optional {
		if v != "" {
			p[k] = v
		}
	}
	return p
}
