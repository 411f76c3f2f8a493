package manager

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/personal-site/adapters/api"
	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/internal/domain/contact"
	"github.com/khoahotran/personal-site/internal/domain/experience"
	"github.com/khoahotran/personal-site/internal/domain/post"
	"github.com/khoahotran/personal-site/pkg/apperror"
)

type call struct {
	method string
	id     string
	body   api.Body
}

// fakeResource serves a fixed list body and records every mutation.
type fakeResource struct {
	mu        sync.Mutex
	listBody  string
	listErr   error
	listFn    func(n int) ([]byte, error)
	listCalls int
	params    []url.Values
	updateErr map[string]error
	createErr error
	deleteErr error
	calls     []call
}

func (f *fakeResource) List(_ context.Context, params url.Values) ([]byte, error) {
	f.mu.Lock()
	f.listCalls++
	n := f.listCalls
	f.params = append(f.params, params)
	fn, body, err := f.listFn, f.listBody, f.listErr
	f.mu.Unlock()
	if fn != nil {
		return fn(n)
	}
	return []byte(body), err
}

func (f *fakeResource) Create(_ context.Context, body api.Body) ([]byte, error) {
	f.record(call{method: http.MethodPost, body: body})
	if f.createErr != nil {
		return nil, f.createErr
	}
	return []byte(`{"data":{"experience":{"_id":"new-1"}}}`), nil
}

func (f *fakeResource) Update(_ context.Context, id string, body api.Body) ([]byte, error) {
	f.record(call{method: http.MethodPatch, id: id, body: body})
	f.mu.Lock()
	defer f.mu.Unlock()
	return []byte(`{}`), f.updateErr[id]
}

func (f *fakeResource) Delete(_ context.Context, id string) error {
	f.record(call{method: http.MethodDelete, id: id})
	return f.deleteErr
}

func (f *fakeResource) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeResource) mutations() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []domain.ContentChange
}

func (p *recordingPublisher) PublishContentChange(_ context.Context, c domain.ContentChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return nil
}

const experienceList = `{"data":{"items":[
	{"_id":"e1","role":"Engineer","company":"Acme","startDate":"2021-03-01","order":3,"published":true},
	{"_id":"e2","role":"Intern","company":"Beta","startDate":"2019-06-01","order":1,"published":false},
	{"_id":"e3","role":"Lead","company":"Gamma","startDate":"2023-01-01","order":7}
]}}`

type ManagerSuite struct {
	suite.Suite
	ctx   context.Context
	res   *fakeResource
	inbox *Inbox
	pub   *recordingPublisher
	m     *Manager[experience.Experience, experience.Form]
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.res = &fakeResource{listBody: experienceList, updateErr: map[string]error{}}
	s.inbox = NewInbox(10)
	s.pub = &recordingPublisher{}
	s.m = New[experience.Experience, experience.Form](experience.Schema{}, s.res, Options{
		Notifier:  s.inbox,
		Publisher: s.pub,
	})
	s.Require().NoError(s.m.Load(s.ctx))
	s.inbox.Drain()
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) lastMessage() string {
	notices := s.inbox.Drain()
	s.Require().NotEmpty(notices)
	return notices[len(notices)-1].Message
}

func (s *ManagerSuite) TestLoadDecodesAndDefaultsPublished() {
	v := s.m.View()
	s.Equal(StatusLoaded, v.Status)
	s.Require().Len(v.Items, 3)
	s.True(v.Items[0].Published)
	s.False(v.Items[1].Published)
	s.True(v.Items[2].Published, "missing published reads as published")
}

func (s *ManagerSuite) TestNextOrder() {
	s.Equal(8, s.m.NextOrder())

	empty := New[experience.Experience, experience.Form](experience.Schema{}, &fakeResource{listBody: `[]`}, Options{})
	s.Require().NoError(empty.Load(s.ctx))
	s.Equal(1, empty.NextOrder())

	form, err := empty.StartCreate()
	s.Require().NoError(err)
	s.Equal(1, form.Order)
	s.True(form.Published)
}

func (s *ManagerSuite) TestCurrentRoleOmitsEndDate() {
	_, err := s.m.StartCreate()
	s.Require().NoError(err)

	err = s.m.Submit(s.ctx, experience.Form{
		Role:      "Staff Engineer",
		Company:   "Delta",
		StartDate: "2024-02-01",
		EndDate:   "2024-12-01",
		Current:   true,
		Tags:      "go, kafka",
		Order:     8,
		Published: true,
	}, nil, nil)
	s.Require().NoError(err)

	calls := s.res.mutations()
	s.Require().Len(calls, 1)
	s.Equal(http.MethodPost, calls[0].method)
	body, ok := calls[0].body.(api.JSONBody)
	s.Require().True(ok, "no files means a JSON body")
	s.NotContains(body, "endDate")
	s.Equal(true, body["current"])
	s.Equal([]string{"go", "kafka"}, body["tags"])

	s.Nil(s.m.View().Form, "form closes on success")
	s.Equal("Experience created", s.lastMessage())
	s.Equal(2, s.res.listCalls, "list reloads after save")

	s.Require().Len(s.pub.changes, 1)
	s.Equal(domain.ActionCreated, s.pub.changes[0].Action)
	s.Equal([]string{"new-1"}, s.pub.changes[0].IDs)
}

func (s *ManagerSuite) TestDiscardThenReloadMatchesServer() {
	before := s.m.View()

	_, err := s.m.TogglePublishStaged("e1")
	s.Require().NoError(err)
	_, err = s.m.TogglePublishStaged("e2")
	s.Require().NoError(err)
	s.True(s.m.HasPending())

	s.m.DiscardStaged()
	s.Require().NoError(s.m.Load(s.ctx))

	after := s.m.View()
	s.False(after.HasPending)
	s.Equal(before.Items, after.Items)
	s.Empty(s.res.mutations(), "discard sends nothing")
}

func (s *ManagerSuite) TestPartialCommitFailureKeepsStaging() {
	_, err := s.m.TogglePublishStaged("e1")
	s.Require().NoError(err)
	_, err = s.m.TogglePublishStaged("e2")
	s.Require().NoError(err)
	s.res.updateErr["e2"] = &api.Error{Status: http.StatusBadRequest, Message: "Order must be unique"}

	err = s.m.CommitStaged(s.ctx)
	s.Require().Error(err)

	s.Equal("Order must be unique", s.lastMessage())
	s.Equal([]string{"e1", "e2"}, s.m.View().Pending, "both toggles stay staged")
	s.Len(s.res.mutations(), 2, "every staged id was attempted")
	s.Equal(1, s.res.listCalls, "no reload after a failed commit")
	s.Empty(s.pub.changes)

	delete(s.res.updateErr, "e2")
	s.Require().NoError(s.m.CommitStaged(s.ctx))
	s.False(s.m.HasPending())
	s.Equal("Changes saved", s.lastMessage())
	s.Require().Len(s.pub.changes, 1)
	s.Equal(domain.ActionPublished, s.pub.changes[0].Action)
}

func (s *ManagerSuite) TestToggleTwiceCancels() {
	v, err := s.m.TogglePublishStaged("e1")
	s.Require().NoError(err)
	s.False(v)
	eff, err := s.m.EffectivePublished("e1")
	s.Require().NoError(err)
	s.False(eff)

	v, err = s.m.TogglePublishStaged("e1")
	s.Require().NoError(err)
	s.True(v)
	s.False(s.m.HasPending())

	_, err = s.m.TogglePublishStaged("missing")
	s.ErrorIs(err, apperror.ErrNotFound)
}

func (s *ManagerSuite) TestCommitSendsOnlyPublished() {
	_, err := s.m.TogglePublishStaged("e3")
	s.Require().NoError(err)
	s.Require().NoError(s.m.CommitStaged(s.ctx))

	calls := s.res.mutations()
	s.Require().Len(calls, 1)
	s.Equal("e3", calls[0].id)
	s.Equal(api.JSONBody{"published": false}, calls[0].body)
}

func (s *ManagerSuite) TestValidationBlocksRequest() {
	_, err := s.m.StartCreate()
	s.Require().NoError(err)

	err = s.m.Submit(s.ctx, experience.Form{Company: "Acme", StartDate: "2024-01-01"}, nil, nil)
	s.ErrorIs(err, apperror.ErrInvalidInput)
	s.Equal("Role is required", s.lastMessage())
	s.Empty(s.res.mutations())

	v := s.m.View()
	s.Require().NotNil(v.Form, "form stays open")
	s.Equal("Acme", v.Form.Values.Company)
	s.False(v.Submitting)
}

func (s *ManagerSuite) TestUnknownFileFieldRejected() {
	_, err := s.m.StartEdit("e1")
	s.Require().NoError(err)

	form := experience.Schema{}.FormFrom(s.m.Items()[0])
	err = s.m.Submit(s.ctx, form, []api.File{{Field: "resume", Name: "cv.pdf", Content: strings.NewReader("x")}}, nil)
	s.ErrorIs(err, apperror.ErrInvalidInput)
	s.Empty(s.res.mutations())
}

func (s *ManagerSuite) TestFilesSwitchToMultipart() {
	_, err := s.m.StartEdit("e1")
	s.Require().NoError(err)
	form := s.m.View().Form.Values
	form.Review = "Great team"

	err = s.m.Submit(s.ctx, form, []api.File{{Field: "logo", Name: "logo.png", Content: strings.NewReader("\x89PNG\r\n\x1a\n")}}, nil)
	s.Require().NoError(err)

	calls := s.res.mutations()
	s.Require().Len(calls, 1)
	s.Equal(http.MethodPatch, calls[0].method)
	s.Equal("e1", calls[0].id)
	mp, ok := calls[0].body.(*api.Multipart)
	s.Require().True(ok)
	s.Equal("Great team", mp.Fields["review"])
	s.Equal("Experience updated", s.lastMessage())
}

func (s *ManagerSuite) TestSaveFailureKeepsForm() {
	s.res.createErr = &api.Error{Status: http.StatusConflict, Message: "Duplicate order"}
	_, err := s.m.StartCreate()
	s.Require().NoError(err)

	form := experience.Form{Role: "Dev", Company: "Acme", StartDate: "2024-01-01", Order: 3}
	err = s.m.Submit(s.ctx, form, nil, nil)
	s.Require().Error(err)
	s.Equal("Duplicate order", s.lastMessage())
	s.Require().NotNil(s.m.View().Form)
	s.Equal(form, s.m.View().Form.Values)

	s.res.createErr = errors.New("")
	err = s.m.Submit(s.ctx, form, nil, nil)
	s.Require().Error(err)
	s.Equal(msgSaveFailed, s.lastMessage())
}

func (s *ManagerSuite) TestDeleteNeedsConfirmation() {
	err := s.m.Delete(s.ctx, "e1", nil)
	s.ErrorIs(err, apperror.ErrConfirmation)
	err = s.m.Delete(s.ctx, "e1", Confirmed(false))
	s.ErrorIs(err, apperror.ErrConfirmation)
	s.Empty(s.res.mutations())

	var asked Prompt
	err = s.m.Delete(s.ctx, "e1", ConfirmFunc(func(_ context.Context, p Prompt) bool {
		asked = p
		return true
	}))
	s.Require().NoError(err)
	s.Equal("Delete this experience?", asked.Title)
	s.Equal("Experience deleted", s.lastMessage())
	s.Equal([]call{{method: http.MethodDelete, id: "e1"}}, s.res.mutations())
}

func (s *ManagerSuite) TestDeleteFailureMessage() {
	s.res.deleteErr = errors.New("")
	err := s.m.Delete(s.ctx, "e1", Confirmed(true))
	s.Error(err)
	s.Equal(msgDeleteFailed, s.lastMessage())
}

func (s *ManagerSuite) TestSaveSucceedsWhenReloadFails() {
	_, err := s.m.StartCreate()
	s.Require().NoError(err)
	s.res.listErr = &api.Error{Status: http.StatusServiceUnavailable, Message: "List unavailable"}

	form := experience.Form{Role: "Dev", Company: "Acme", StartDate: "2024-01-01", Order: 3}
	s.Require().NoError(s.m.Submit(s.ctx, form, nil, nil))

	v := s.m.View()
	s.Nil(v.Form, "the saved form closes")
	s.Equal(StatusLoadError, v.Status)
	s.Equal("List unavailable", v.Error)

	notices := s.inbox.Drain()
	s.Require().Len(notices, 2)
	s.Equal(LevelSuccess, notices[0].Level)
	s.Equal("Experience created", notices[0].Message)
	s.Equal(LevelError, notices[1].Level)
	s.Equal("List unavailable", notices[1].Message)
	s.Len(s.pub.changes, 1)
}

func (s *ManagerSuite) TestDeleteAndCommitSucceedWhenReloadFails() {
	_, err := s.m.TogglePublishStaged("e2")
	s.Require().NoError(err)
	s.res.listErr = errors.New("list down")

	s.NoError(s.m.CommitStaged(s.ctx))
	s.NoError(s.m.Delete(s.ctx, "e1", Confirmed(true)))
	s.Equal(StatusLoadError, s.m.View().Status)
	s.Len(s.res.mutations(), 2)
}

func (s *ManagerSuite) TestLoadErrorFallback() {
	s.res.listErr = errors.New("")
	err := s.m.Load(s.ctx)
	s.Error(err)

	v := s.m.View()
	s.Equal(StatusLoadError, v.Status)
	s.Equal("Failed to load experiences", v.Error)
	s.Equal("Failed to load experiences", s.lastMessage())

	s.res.listErr = &api.Error{Status: http.StatusInternalServerError, Message: "Database offline"}
	s.Error(s.m.Load(s.ctx))
	s.Equal("Database offline", s.m.View().Error)
}

func (s *ManagerSuite) TestSuccessfulLoadClearsStaging() {
	_, err := s.m.TogglePublishStaged("e1")
	s.Require().NoError(err)
	s.Require().NoError(s.m.Load(s.ctx))
	s.False(s.m.HasPending())
}

func (s *ManagerSuite) TestCloseIgnoresLaterWork() {
	s.m.Close()

	s.NoError(s.m.Load(s.ctx))
	s.Equal(1, s.res.listCalls)
	_, err := s.m.StartCreate()
	s.Error(err)
	_, err = s.m.TogglePublishStaged("e1")
	s.Error(err)
	s.NoError(s.m.Delete(s.ctx, "e1", Confirmed(true)))
	s.Empty(s.res.mutations())
	s.Empty(s.inbox.Drain())
}

func TestStaleLoadDropped(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	res := &fakeResource{listFn: func(n int) ([]byte, error) {
		if n == 1 {
			close(entered)
			<-release
			return []byte(`[{"_id":"old","order":1}]`), nil
		}
		return []byte(`[{"_id":"new","order":2}]`), nil
	}}
	m := New[experience.Experience, experience.Form](experience.Schema{}, res, Options{})

	done := make(chan error, 1)
	go func() { done <- m.Load(context.Background()) }()
	<-entered

	require.NoError(t, m.Load(context.Background()))
	close(release)
	require.NoError(t, <-done)

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].ID)
}

func TestCloseDuringLoad(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	res := &fakeResource{listFn: func(int) ([]byte, error) {
		close(entered)
		<-release
		return []byte(`[{"_id":"x"}]`), nil
	}}
	m := New[experience.Experience, experience.Form](experience.Schema{}, res, Options{})

	done := make(chan error, 1)
	go func() { done <- m.Load(context.Background()) }()
	<-entered
	m.Close()
	close(release)
	require.NoError(t, <-done)
	assert.Empty(t, m.Items())
	assert.Equal(t, StatusLoading, m.View().Status)
}

func TestContactsAreReadOnly(t *testing.T) {
	res := &fakeResource{listBody: `{"data":[{"_id":"c1","name":"Ann","email":"ann@example.com","message":"hi"}]}`}
	m := New[contact.Contact, contact.Form](contact.Schema{}, res, Options{
		Params: url.Values{"lastDays": {"30"}},
	})
	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, "30", res.params[0].Get("lastDays"))
	require.Len(t, m.Items(), 1)

	_, err := m.StartCreate()
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	_, err = m.TogglePublishStaged("c1")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.True(t, m.View().ReadOnly)

	m.SetParam("lastDays", "7")
	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, "7", res.params[1].Get("lastDays"))
	m.SetParam("lastDays", "")
	assert.Empty(t, m.View().Filters)
}

func TestPostEditForm(t *testing.T) {
	res := &fakeResource{listBody: `[{"_id":"p1","platform":"linkedin","title":"Hello","link":"https://example.com/p","tags":"[\"go\",\"web\"]","order":2}]`}
	m := New[post.Post, post.Form](post.Schema{}, res, Options{})
	require.NoError(t, m.Load(context.Background()))

	form, err := m.StartEdit("p1")
	require.NoError(t, err)
	assert.Equal(t, post.PlatformLinkedIn, form.Platform)
	assert.True(t, form.Published)

	var tags []string
	require.NoError(t, json.Unmarshal([]byte(form.Tags), &tags))
	assert.Equal(t, []string{"go", "web"}, tags)

	_, err = m.StartEdit("missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestInboxKeepsNewest(t *testing.T) {
	b := NewInbox(2)
	b.Notify(Notice{Message: "a"})
	b.Notify(Notice{Message: "b"})
	b.Notify(Notice{Message: "c"})
	got := b.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Message)
	assert.Equal(t, "c", got[1].Message)
	assert.Empty(t, b.Drain())
}
