package experience

import (
	"strings"
	"time"

	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/coerce"
)

type Experience struct {
	ID               string      `json:"id"`
	Role             string      `json:"role"`
	Company          string      `json:"company"`
	Location         string      `json:"location,omitempty"`
	StartDate        coerce.Date `json:"startDate"`
	EndDate          coerce.Date `json:"endDate"`
	Current          bool        `json:"current"`
	Responsibilities coerce.List `json:"responsibilities"`
	Tags             coerce.List `json:"tags"`
	Review           string      `json:"review,omitempty"`
	Order            int         `json:"order"`
	Published        *bool       `json:"published,omitempty"`
	Image            string      `json:"image,omitempty"`
	Logo             string      `json:"logo,omitempty"`
	CreatedAt        coerce.Date `json:"createdAt"`
	UpdatedAt        coerce.Date `json:"updatedAt"`
}

func (e Experience) Key() string        { return e.ID }
func (e Experience) SortOrder() int     { return e.Order }
func (e Experience) IsPublished() bool  { return domain.Published(e.Published) }
func (e Experience) Created() time.Time { return e.CreatedAt.Time }

// Period renders the employment range shown on timeline cards.
func (e Experience) Period() string {
	return coerce.FormatRange(e.StartDate, e.EndDate, e.Current)
}

// Form is the editable shape of an experience. List fields hold free text.
type Form struct {
	Role             string `json:"role" yaml:"role"`
	Company          string `json:"company" yaml:"company"`
	Location         string `json:"location" yaml:"location"`
	StartDate        string `json:"startDate" yaml:"startDate"`
	EndDate          string `json:"endDate" yaml:"endDate"`
	Current          bool   `json:"current" yaml:"current"`
	Responsibilities string `json:"responsibilities" yaml:"responsibilities"`
	Tags             string `json:"tags" yaml:"tags"`
	Review           string `json:"review" yaml:"review"`
	Order            int    `json:"order" yaml:"order"`
	Published        bool   `json:"published" yaml:"published"`
}

// Schema binds experiences to the list manager.
type Schema struct{}

func (Schema) Collection() string   { return domain.CollectionExperiences }
func (Schema) Noun() string         { return "experience" }
func (Schema) ReadOnly() bool       { return false }
func (Schema) FileFields() []string { return []string{"image", "logo"} }

func (Schema) NewForm(nextOrder int) Form {
	return Form{Order: nextOrder, Published: true}
}

func (Schema) FormFrom(e Experience) Form {
	return Form{
		Role:             e.Role,
		Company:          e.Company,
		Location:         e.Location,
		StartDate:        e.StartDate.InputValue(),
		EndDate:          e.EndDate.InputValue(),
		Current:          e.Current,
		Responsibilities: coerce.FormatArray(e.Responsibilities),
		Tags:             coerce.FormatArray(e.Tags),
		Review:           e.Review,
		Order:            e.Order,
		Published:        e.IsPublished(),
	}
}

func (Schema) Validate(f Form) error {
	switch {
	case strings.TrimSpace(f.Role) == "":
		return apperror.NewInvalidInput("Role is required", nil)
	case strings.TrimSpace(f.Company) == "":
		return apperror.NewInvalidInput("Company is required", nil)
	case strings.TrimSpace(f.StartDate) == "":
		return apperror.NewInvalidInput("Start date is required", nil)
	}
	if _, ok := coerce.ParseDate(f.StartDate); !ok {
		return apperror.NewInvalidInput("Start date is not a valid date", nil)
	}
	if !f.Current && f.EndDate != "" {
		if _, ok := coerce.ParseDate(f.EndDate); !ok {
			return apperror.NewInvalidInput("End date is not a valid date", nil)
		}
	}
	return nil
}

// Payload builds the request fields. endDate is never sent for a current role.
func (Schema) Payload(f Form) map[string]any {
	p := map[string]any{
		"role":             strings.TrimSpace(f.Role),
		"company":          strings.TrimSpace(f.Company),
		"startDate":        f.StartDate,
		"current":          f.Current,
		"responsibilities": coerce.ToArray(f.Responsibilities),
		"tags":             coerce.ToArray(f.Tags),
		"order":            f.Order,
		"published":        f.Published,
	}
	if f.Location != "" {
		p["location"] = f.Location
	}
	if !f.Current && f.EndDate != "" {
		p["endDate"] = f.EndDate
	}
	if f.Review != "" {
		p["review"] = f.Review
	}
	return p
}
