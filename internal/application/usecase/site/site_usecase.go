// Package site builds the public views of the portfolio: timeline cards,
// project and post lists, the hero, the qualifications timeline and the RSS feed.
package site

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/adapters/api"
	"github.com/khoahotran/personal-site/internal/config"
	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/internal/domain/contact"
	"github.com/khoahotran/personal-site/internal/domain/experience"
	"github.com/khoahotran/personal-site/internal/domain/post"
	"github.com/khoahotran/personal-site/internal/domain/profile"
	"github.com/khoahotran/personal-site/internal/domain/project"
	"github.com/khoahotran/personal-site/internal/normalize"
	"github.com/khoahotran/personal-site/pkg/coerce"
	"github.com/khoahotran/personal-site/pkg/logger"
)

var tracer = otel.Tracer("site_usecase")

type PublicLister interface {
	ListPublic(ctx context.Context) ([]byte, error)
}

type ContactSubmitter interface {
	CreatePublic(ctx context.Context, body api.Body) ([]byte, error)
}

type AdminStatus interface {
	Status(ctx context.Context) ([]byte, error)
}

// Cache holds rendered views. Keys start with the collection they derive from
// so a content change can drop them by prefix.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, val any) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type Sources struct {
	Experiences PublicLister
	Projects    PublicLister
	Posts       PublicLister
	Contacts    ContactSubmitter
	Admin       AdminStatus
}

// NewSources wires every public endpoint of one API client.
func NewSources(c *api.Client) Sources {
	return Sources{
		Experiences: c.Experiences(),
		Projects:    c.Projects(),
		Posts:       c.Posts(),
		Contacts:    c.Contacts(),
		Admin:       c.Admin(),
	}
}

type SiteUseCase struct {
	src    Sources
	cache  Cache
	site   siteInfo
	logger logger.Logger
}

type siteInfo struct {
	title       string
	url         string
	author      string
	description string
	feedLimit   int
}

func NewSiteUseCase(src Sources, cache Cache, cfg config.Config, log logger.Logger) *SiteUseCase {
	if log == nil {
		log = logger.NewNopLogger()
	}
	info := siteInfo{
		title:       cfg.Site.Title,
		url:         strings.TrimSuffix(cfg.Site.URL, "/"),
		author:      cfg.Site.Author,
		description: cfg.Site.Description,
		feedLimit:   cfg.Site.FeedLimit,
	}
	if info.feedLimit <= 0 {
		info.feedLimit = 20
	}
	return &SiteUseCase{src: src, cache: cache, site: info, logger: log}
}

// ExperienceCard is one entry of the public career timeline.
type ExperienceCard struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Company          string   `json:"company"`
	Location         string   `json:"location,omitempty"`
	Date             string   `json:"date"`
	Current          bool     `json:"current"`
	Responsibilities []string `json:"responsibilities"`
	Tags             []string `json:"tags"`
	Review           string   `json:"review,omitempty"`
	LogoPath         string   `json:"logoPath,omitempty"`
	ImgPath          string   `json:"imgPath,omitempty"`
}

func toCard(e experience.Experience) ExperienceCard {
	return ExperienceCard{
		ID:               e.ID,
		Title:            e.Role,
		Company:          e.Company,
		Location:         e.Location,
		Date:             e.Period(),
		Current:          e.Current,
		Responsibilities: nonNil(e.Responsibilities),
		Tags:             nonNil(e.Tags),
		Review:           e.Review,
		LogoPath:         e.Logo,
		ImgPath:          e.Image,
	}
}

// ExecuteExperiences lists published experiences, highest order first and the
// most recently created first within an order.
func (uc *SiteUseCase) ExecuteExperiences(ctx context.Context) ([]ExperienceCard, error) {
	return cached(ctx, uc, domain.CollectionExperiences, func(ctx context.Context) ([]ExperienceCard, error) {
		items, err := list[experience.Experience](ctx, uc.src.Experiences)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Order != items[j].Order {
				return items[i].Order > items[j].Order
			}
			return items[i].Created().After(items[j].Created())
		})
		cards := make([]ExperienceCard, 0, len(items))
		for _, e := range items {
			if e.IsPublished() {
				cards = append(cards, toCard(e))
			}
		}
		return cards, nil
	})
}

// ExecuteProjects lists published projects by ascending order, newest first on ties.
func (uc *SiteUseCase) ExecuteProjects(ctx context.Context) ([]project.Project, error) {
	return cached(ctx, uc, domain.CollectionProjects, func(ctx context.Context) ([]project.Project, error) {
		items, err := list[project.Project](ctx, uc.src.Projects)
		if err != nil {
			return nil, err
		}
		return published(byOrder(items)), nil
	})
}

// ExecutePosts lists published posts by ascending order.
func (uc *SiteUseCase) ExecutePosts(ctx context.Context) ([]post.Post, error) {
	return cached(ctx, uc, domain.CollectionPosts, func(ctx context.Context) ([]post.Post, error) {
		items, err := list[post.Post](ctx, uc.src.Posts)
		if err != nil {
			return nil, err
		}
		return published(byOrder(items)), nil
	})
}

type QualificationCard struct {
	ID            string            `json:"id,omitempty"`
	Title         string            `json:"title"`
	InstituteLink string            `json:"instituteLink,omitempty"`
	MediaURL      string            `json:"mediaUrl,omitempty"`
	MediaType     profile.MediaType `json:"mediaType"`
	Desc          string            `json:"desc,omitempty"`
	Skills        []string          `json:"skills"`
	From          string            `json:"from,omitempty"`
	To            string            `json:"to,omitempty"`
}

// ExecuteQualifications shows the published qualifications of the public admin profile.
func (uc *SiteUseCase) ExecuteQualifications(ctx context.Context) ([]QualificationCard, error) {
	return cached(ctx, uc, domain.CollectionAdmin+":qualifications", func(ctx context.Context) ([]QualificationCard, error) {
		p, err := uc.adminProfile(ctx)
		if err != nil {
			return nil, err
		}
		quals := p.PublishedQualifications()
		cards := make([]QualificationCard, 0, len(quals))
		for _, q := range quals {
			mt := q.MediaType
			if mt == "" {
				mt = profile.MediaSVG
			}
			cards = append(cards, QualificationCard{
				ID:            q.ID,
				Title:         q.Title,
				InstituteLink: q.InstituteLink,
				MediaURL:      q.MediaURL,
				MediaType:     mt,
				Desc:          q.Desc,
				Skills:        nonNil(q.Skills),
				From:          coerce.FormatShort(q.From),
				To:            coerce.FormatShort(q.To),
			})
		}
		return cards, nil
	})
}

type Hero struct {
	Name        string `json:"name"`
	Fname       string `json:"Fname"`
	Lname       string `json:"Lname"`
	Description string `json:"description,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	ResumeURL   string `json:"resumeUrl,omitempty"`
}

// ExecuteHero renders the landing header. The resume link is rewritten to a
// direct download when it points at Google Drive.
func (uc *SiteUseCase) ExecuteHero(ctx context.Context) (*Hero, error) {
	h, err := cached(ctx, uc, domain.CollectionAdmin+":hero", func(ctx context.Context) (Hero, error) {
		p, err := uc.adminProfile(ctx)
		if err != nil {
			return Hero{}, err
		}
		return Hero{
			Name:        p.FullName(),
			Fname:       p.Fname,
			Lname:       p.Lname,
			Description: p.Description,
			Avatar:      p.Avatar,
			ResumeURL:   coerce.DriveDownloadURL(coerce.TrimQuotes(p.Resume)),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ExecuteSubmitContact validates the public contact form and posts it.
func (uc *SiteUseCase) ExecuteSubmitContact(ctx context.Context, s contact.Submission) error {
	s.Normalize()
	if err := s.Validate(); err != nil {
		return err
	}
	if _, err := uc.src.Contacts.CreatePublic(ctx, api.JSONBody(s.Payload())); err != nil {
		uc.logger.Warn("contact submission failed", zap.Error(err))
		return err
	}
	uc.logger.Info("contact submitted", zap.String("type", s.Type))
	return nil
}

// Invalidate drops every cached view derived from the changed collection.
func (uc *SiteUseCase) Invalidate(ctx context.Context, change domain.ContentChange) error {
	if uc.cache == nil {
		return nil
	}
	uc.logger.Debug("invalidating public views", zap.String("collection", change.Collection), zap.String("action", string(change.Action)))
	return uc.cache.DeletePrefix(ctx, change.Collection)
}

func (uc *SiteUseCase) adminProfile(ctx context.Context) (profile.AdminProfile, error) {
	var p profile.AdminProfile
	body, err := uc.src.Admin.Status(ctx)
	if err != nil {
		return p, err
	}
	item, err := normalize.Item(body, "admin")
	if err != nil {
		return p, err
	}
	err = normalize.DecodeOne(item, &p)
	return p, err
}

// cached serves key from the cache, building and storing it on a miss.
// Cache failures never fail the request.
func cached[V any](ctx context.Context, uc *SiteUseCase, key string, build func(context.Context) (V, error)) (V, error) {
	ctx, span := tracer.Start(ctx, "view "+key)
	defer span.End()

	var v V
	if uc.cache != nil {
		ok, err := uc.cache.Get(ctx, key, &v)
		if err != nil {
			uc.logger.Warn("view cache read failed", zap.String("key", key), zap.Error(err))
		}
		span.SetAttributes(attribute.Bool("cache.hit", ok))
		if ok {
			return v, nil
		}
	}
	v, err := build(ctx)
	if err != nil {
		span.RecordError(err)
		return v, err
	}
	if uc.cache != nil {
		if err := uc.cache.Set(ctx, key, v); err != nil {
			uc.logger.Warn("view cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}

func list[T domain.Record](ctx context.Context, src PublicLister) ([]T, error) {
	body, err := src.ListPublic(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := normalize.Items(body)
	if err != nil {
		return nil, err
	}
	return normalize.Decode[T](raw)
}

func byOrder[T domain.Record](items []T) []T {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].SortOrder() != items[j].SortOrder() {
			return items[i].SortOrder() < items[j].SortOrder()
		}
		return items[i].Created().After(items[j].Created())
	})
	return items
}

func published[T domain.Record](items []T) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if it.IsPublished() {
			out = append(out, it)
		}
	}
	return out
}

func nonNil(l []string) []string {
	if l == nil {
		return []string{}
	}
	return l
}
