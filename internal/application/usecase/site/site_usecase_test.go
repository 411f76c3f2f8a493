package site

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/personal-site/adapters/api"
	"github.com/khoahotran/personal-site/adapters/persistence"
	"github.com/khoahotran/personal-site/internal/config"
	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/internal/domain/contact"
	"github.com/khoahotran/personal-site/pkg/apperror"
)

type staticList struct {
	body  string
	err   error
	calls int
}

func (s *staticList) ListPublic(context.Context) ([]byte, error) {
	s.calls++
	return []byte(s.body), s.err
}

type staticStatus struct{ body string }

func (s staticStatus) Status(context.Context) ([]byte, error) { return []byte(s.body), nil }

type recordingContacts struct {
	bodies []api.Body
	err    error
}

func (r *recordingContacts) CreatePublic(_ context.Context, body api.Body) ([]byte, error) {
	r.bodies = append(r.bodies, body)
	return nil, r.err
}

const (
	experiencesBody = `{"data":{"items":[
		{"_id":"a","role":"Intern","company":"A","startDate":"2018-01-01","endDate":"2018-06-01","order":1,"createdAt":"2024-01-01T00:00:00Z"},
		{"_id":"b","role":"Lead","company":"B","startDate":"2022-02-01","current":true,"order":2,"tags":"[\"go\"]","createdAt":"2024-01-01T00:00:00Z"},
		{"_id":"c","role":"Dev","company":"C","startDate":"2020-01-01","endDate":"2021-12-01","order":1,"createdAt":"2024-05-01T00:00:00Z"}
	]}}`
	postsBody = `[
		{"_id":"p2","platform":"x","title":"Second","link":"https://x.com/2","order":2},
		{"_id":"p1","platform":"linkedin","title":"First","link":"https://linkedin.com/1","excerpt":"hello","order":1,"createdAt":"2024-03-01T00:00:00Z"},
		{"_id":"p3","platform":"x","title":"Hidden","link":"https://x.com/3","order":0,"published":false}
	]`
	statusBody = `{"data":{"admin":{"Fname":"Khoa","Lname":"Tran","resume":"\"https://drive.google.com/file/d/FILE123/view?usp=sharing\"",
		"qualification":[
			{"_id":"q1","title":"BSc","skills":["go"],"from":"2016-09-01","to":"2020-06-01","isPublished":true},
			{"_id":"q2","title":"Draft","isPublished":false}
		]}}}`
)

type SiteSuite struct {
	suite.Suite
	ctx         context.Context
	experiences *staticList
	posts       *staticList
	projects    *staticList
	contacts    *recordingContacts
	uc          *SiteUseCase
}

func (s *SiteSuite) SetupTest() {
	s.ctx = context.Background()
	s.experiences = &staticList{body: experiencesBody}
	s.posts = &staticList{body: postsBody}
	s.projects = &staticList{body: `{"data":[]}`}
	s.contacts = &recordingContacts{}

	var cfg config.Config
	cfg.Site.Title = "Khoa Tran"
	cfg.Site.URL = "https://example.com/"
	cfg.Site.Author = "Khoa"

	s.uc = NewSiteUseCase(Sources{
		Experiences: s.experiences,
		Projects:    s.projects,
		Posts:       s.posts,
		Contacts:    s.contacts,
		Admin:       staticStatus{body: statusBody},
	}, persistence.NewMemoryViewCache(time.Minute), cfg, nil)
}

func TestSiteSuite(t *testing.T) {
	suite.Run(t, new(SiteSuite))
}

func (s *SiteSuite) TestExperienceCardsOrdering() {
	cards, err := s.uc.ExecuteExperiences(s.ctx)
	s.Require().NoError(err)

	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	s.Equal([]string{"b", "c", "a"}, ids, "order descending, newer first on ties")

	lead := cards[0]
	s.Equal("Lead", lead.Title)
	s.True(strings.HasSuffix(lead.Date, " - Present"), lead.Date)
	s.Equal([]string{"go"}, lead.Tags)
	s.Equal([]string{}, lead.Responsibilities)
}

func (s *SiteSuite) TestViewsAreCachedUntilInvalidated() {
	_, err := s.uc.ExecuteExperiences(s.ctx)
	s.Require().NoError(err)
	_, err = s.uc.ExecuteExperiences(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, s.experiences.calls)

	s.Require().NoError(s.uc.Invalidate(s.ctx, domain.ContentChange{Collection: domain.CollectionPosts}))
	_, _ = s.uc.ExecuteExperiences(s.ctx)
	s.Equal(1, s.experiences.calls, "other collections keep their cache")

	s.Require().NoError(s.uc.Invalidate(s.ctx, domain.ContentChange{Collection: domain.CollectionExperiences}))
	_, _ = s.uc.ExecuteExperiences(s.ctx)
	s.Equal(2, s.experiences.calls)
}

func (s *SiteSuite) TestErrorsAreNotCached() {
	s.projects.err = &api.Error{Status: http.StatusBadGateway}
	_, err := s.uc.ExecuteProjects(s.ctx)
	s.Error(err)

	s.projects.err = nil
	items, err := s.uc.ExecuteProjects(s.ctx)
	s.Require().NoError(err)
	s.Empty(items)
	s.Equal(2, s.projects.calls)
}

func (s *SiteSuite) TestPostsPublishedByOrder() {
	posts, err := s.uc.ExecutePosts(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(posts, 2)
	s.Equal("p1", posts[0].ID)
	s.Equal("p2", posts[1].ID)
}

func (s *SiteSuite) TestQualificationsAndHero() {
	quals, err := s.uc.ExecuteQualifications(s.ctx)
	s.Require().NoError(err)
	want := []QualificationCard{{
		ID:        "q1",
		Title:     "BSc",
		MediaType: "svg",
		Skills:    []string{"go"},
		From:      "Sep 2016",
		To:        "Jun 2020",
	}}
	if diff := cmp.Diff(want, quals); diff != "" {
		s.Failf("qualifications mismatch", "(-want +got):\n%s", diff)
	}

	hero, err := s.uc.ExecuteHero(s.ctx)
	s.Require().NoError(err)
	s.Equal("Khoa Tran", hero.Name)
	s.Equal("https://drive.google.com/uc?export=download&id=FILE123", hero.ResumeURL)
}

func (s *SiteSuite) TestFeed() {
	rss, err := s.uc.ExecuteFeed(s.ctx)
	s.Require().NoError(err)
	s.Contains(rss, "<title>Khoa Tran</title>")
	s.Contains(rss, "https://linkedin.com/1")
	s.NotContains(rss, "Hidden")
	s.Less(strings.Index(rss, "First"), strings.Index(rss, "Second"))
}

func (s *SiteSuite) TestSubmitContact() {
	err := s.uc.ExecuteSubmitContact(s.ctx, contact.Submission{Name: " Ann ", Email: "ann@example.com", Message: "Hi"})
	s.Require().NoError(err)
	s.Require().Len(s.contacts.bodies, 1)
	body := s.contacts.bodies[0].(api.JSONBody)
	s.Equal("general", body["type"])

	err = s.uc.ExecuteSubmitContact(s.ctx, contact.Submission{Name: "Ann", Email: "not-an-email", Message: "Hi"})
	s.ErrorIs(err, apperror.ErrInvalidInput)
	s.Len(s.contacts.bodies, 1)
}

func TestNoCache(t *testing.T) {
	lister := &staticList{body: `[]`}
	uc := NewSiteUseCase(Sources{Projects: lister}, nil, config.Config{}, nil)
	_, err := uc.ExecuteProjects(context.Background())
	require.NoError(t, err)
	_, err = uc.ExecuteProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
	assert.NoError(t, uc.Invalidate(context.Background(), domain.ContentChange{Collection: "projects"}))
}
