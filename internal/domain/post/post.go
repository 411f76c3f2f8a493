package post

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/coerce"
)

type Platform string

const (
	PlatformX        Platform = "x"
	PlatformLinkedIn Platform = "linkedin"
	PlatformYouTube  Platform = "youtube"
	PlatformFacebook Platform = "facebook"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformX, PlatformLinkedIn, PlatformYouTube, PlatformFacebook:
		return true
	}
	return false
}

type Post struct {
	ID        string      `json:"id"`
	Platform  Platform    `json:"platform"`
	Title     string      `json:"title"`
	Link      string      `json:"link"`
	Excerpt   string      `json:"excerpt,omitempty"`
	Tags      coerce.List `json:"tags"`
	Order     int         `json:"order"`
	Published *bool       `json:"published,omitempty"`
	Image     string      `json:"image,omitempty"`
	CreatedAt coerce.Date `json:"createdAt"`
	UpdatedAt coerce.Date `json:"updatedAt"`
}

func (p Post) Key() string        { return p.ID }
func (p Post) SortOrder() int     { return p.Order }
func (p Post) IsPublished() bool  { return domain.Published(p.Published) }
func (p Post) Created() time.Time { return p.CreatedAt.Time }

var (
	ErrInvalidPlatform = errors.New("invalid platform")
	ErrInvalidLink     = errors.New("link must be an absolute http(s) URL")
)

type Form struct {
	Platform  Platform `json:"platform" yaml:"platform"`
	Title     string   `json:"title" yaml:"title"`
	Link      string   `json:"link" yaml:"link"`
	Excerpt   string   `json:"excerpt" yaml:"excerpt"`
	Tags      string   `json:"tags" yaml:"tags"`
	Order     int      `json:"order" yaml:"order"`
	Published bool     `json:"published" yaml:"published"`
}

type Schema struct{}

func (Schema) Collection() string   { return domain.CollectionPosts }
func (Schema) Noun() string         { return "post" }
func (Schema) ReadOnly() bool       { return false }
func (Schema) FileFields() []string { return []string{"image"} }

func (Schema) NewForm(nextOrder int) Form {
	return Form{Platform: PlatformX, Order: nextOrder, Published: true}
}

func (Schema) FormFrom(p Post) Form {
	platform := p.Platform
	if platform == "" {
		platform = PlatformX
	}
	return Form{
		Platform:  platform,
		Title:     p.Title,
		Link:      p.Link,
		Excerpt:   p.Excerpt,
		Tags:      coerce.FormatArray(p.Tags),
		Order:     p.Order,
		Published: p.IsPublished(),
	}
}

func (Schema) Validate(f Form) error {
	if !f.Platform.Valid() {
		return apperror.NewInvalidInput(ErrInvalidPlatform.Error(), ErrInvalidPlatform)
	}
	if strings.TrimSpace(f.Title) == "" {
		return apperror.NewInvalidInput("Title is required", nil)
	}
	if strings.TrimSpace(f.Link) == "" {
		return apperror.NewInvalidInput("Link is required", nil)
	}
	u, err := url.Parse(strings.TrimSpace(f.Link))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperror.NewInvalidInput(ErrInvalidLink.Error(), ErrInvalidLink)
	}
	return nil
}

func (Schema) Payload(f Form) map[string]any {
	p := map[string]any{
		"platform":  string(f.Platform),
		"title":     strings.TrimSpace(f.Title),
		"link":      strings.TrimSpace(f.Link),
		"tags":      coerce.ToArray(f.Tags),
		"order":     f.Order,
		"published": f.Published,
	}
	if f.Excerpt != "" {
		p["excerpt"] = f.Excerpt
	}
	return p
}
