package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/personal-site/adapters/api"
	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/internal/domain/profile"
	"github.com/khoahotran/personal-site/internal/manager"
	"github.com/khoahotran/personal-site/pkg/apperror"
)

const meBody = `{"data":{"admin":{"_id":"a1","Fname":"Khoa","Lname":"Tran","email":"me@example.com",
	"qualification":[{"_id":"q1","title":"BSc","skills":["go","sql"],"from":"2016-09-01T00:00:00.000Z","isPublished":true}]}}}`

type fakeAdmin struct {
	updates   []api.Body
	updateErr error
	updateRes string
	meCalls   int
}

func (f *fakeAdmin) Me(context.Context) ([]byte, error) {
	f.meCalls++
	return []byte(meBody), nil
}

func (f *fakeAdmin) Update(_ context.Context, body api.Body) ([]byte, error) {
	f.updates = append(f.updates, body)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return []byte(f.updateRes), nil
}

type publisherFunc func(domain.ContentChange)

func (f publisherFunc) PublishContentChange(_ context.Context, c domain.ContentChange) error {
	f(c)
	return nil
}

func newUseCase(admin *fakeAdmin) (*ProfileUseCase, *manager.Inbox, *[]domain.ContentChange) {
	inbox := manager.NewInbox(10)
	var changes []domain.ContentChange
	uc := NewProfileUseCase(admin, inbox, publisherFunc(func(c domain.ContentChange) { changes = append(changes, c) }), nil)
	return uc, inbox, &changes
}

func TestGetProfileBuildsForm(t *testing.T) {
	uc, _, _ := newUseCase(&fakeAdmin{})
	out, err := uc.ExecuteGetProfile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "a1", out.Profile.ID)
	require.Len(t, out.Form.Qualifications, 1)
	q := out.Form.Qualifications[0]
	assert.Equal(t, "go, sql", q.Skills)
	assert.Equal(t, "2016-09-01", q.From)
	assert.Equal(t, profile.MediaSVG, q.MediaType)
}

func TestUpdateProfileSendsMultipart(t *testing.T) {
	admin := &fakeAdmin{updateRes: meBody}
	uc, inbox, changes := newUseCase(admin)

	form := profile.Form{
		Fname:           "Khoa",
		Email:           " me@example.com ",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Qualifications:  []profile.QualificationForm{{Title: "BSc", Skills: "go, sql", MediaType: profile.MediaSVG}},
	}
	avatar := &api.File{Name: "me.png", Content: strings.NewReader("png")}
	out, err := uc.ExecuteUpdateProfile(context.Background(), UpdateProfileInput{Form: form, Avatar: avatar})
	require.NoError(t, err)
	assert.Equal(t, "Khoa Tran", out.Profile.FullName())

	require.Len(t, admin.updates, 1)
	mp, ok := admin.updates[0].(*api.Multipart)
	require.True(t, ok)
	assert.Equal(t, "me@example.com", mp.Fields["email"])
	assert.Equal(t, "secret1", mp.Fields["password"])
	assert.NotContains(t, mp.Fields, "confirmPassword")
	quals, ok := mp.Fields["qualification"].([]map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"go", "sql"}, quals[0]["skills"])
	require.Len(t, mp.Files, 1)
	assert.Equal(t, "avatar", mp.Files[0].Field)

	assert.Equal(t, "Profile updated", inbox.Drain()[0].Message)
	require.Len(t, *changes, 1)
	assert.Equal(t, domain.CollectionAdmin, (*changes)[0].Collection)
	assert.Zero(t, admin.meCalls, "the update response already holds the admin")
}

func TestPasswordRulesBlockTheRequest(t *testing.T) {
	admin := &fakeAdmin{}
	uc, inbox, _ := newUseCase(admin)

	_, err := uc.ExecuteUpdateProfile(context.Background(), UpdateProfileInput{Form: profile.Form{Password: "abc", ConfirmPassword: "abc"}})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Equal(t, "Password must be at least 6 characters", inbox.Drain()[0].Message)

	_, err = uc.ExecuteUpdateProfile(context.Background(), UpdateProfileInput{Form: profile.Form{Password: "abcdef", ConfirmPassword: "abcdeg"}})
	assert.ErrorIs(t, err, profile.ErrPasswordMismatch)
	assert.Equal(t, "Passwords do not match", inbox.Drain()[0].Message)

	assert.Empty(t, admin.updates)
}

func TestUpdateFailureMessages(t *testing.T) {
	admin := &fakeAdmin{updateErr: errors.New("")}
	uc, inbox, changes := newUseCase(admin)

	_, err := uc.ExecuteUpdateProfile(context.Background(), UpdateProfileInput{Form: profile.Form{Fname: "K"}})
	assert.Error(t, err)
	assert.Equal(t, "Failed to update", inbox.Drain()[0].Message)

	admin.updateErr = &api.Error{Status: http.StatusBadRequest, Message: "Email already in use"}
	_, err = uc.ExecuteSaveQualifications(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, "Email already in use", inbox.Drain()[0].Message)

	admin.updateErr = errors.New("")
	_, err = uc.ExecuteSaveQualifications(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, "Failed to save qualifications", inbox.Drain()[0].Message)
	assert.Empty(t, *changes)
}

func TestSaveQualificationsOnly(t *testing.T) {
	admin := &fakeAdmin{updateRes: `{"success":true}`}
	uc, inbox, _ := newUseCase(admin)

	_, err := uc.ExecuteSaveQualifications(context.Background(), []profile.QualificationForm{{Title: "MSc", From: "not-a-date"}})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Empty(t, admin.updates)
	inbox.Drain()

	out, err := uc.ExecuteSaveQualifications(context.Background(), []profile.QualificationForm{{Title: "MSc", From: "2020-01-01"}})
	require.NoError(t, err)
	assert.Equal(t, "a1", out.Profile.ID, "profile read back when the response omits it")
	assert.Equal(t, 1, admin.meCalls)

	mp := admin.updates[0].(*api.Multipart)
	assert.Len(t, mp.Fields, 1)
	assert.Contains(t, mp.Fields, "qualification")
	assert.Equal(t, "Qualifications saved", inbox.Drain()[0].Message)
}
