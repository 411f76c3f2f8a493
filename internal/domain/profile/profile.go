package profile

import (
	"errors"
	"strings"

	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/coerce"
)

type MediaType string

const (
	MediaSVG   MediaType = "svg"
	MediaImage MediaType = "image"
)

const MinPasswordLength = 6

var (
	ErrPasswordTooShort = errors.New("Password must be at least 6 characters")
	ErrPasswordMismatch = errors.New("Passwords do not match")
)

// Qualification is embedded in the admin profile and has no id until first saved.
type Qualification struct {
	ID            string      `json:"_id,omitempty"`
	InstituteLink string      `json:"instituteLink"`
	MediaURL      string      `json:"mediaUrl,omitempty"`
	MediaType     MediaType   `json:"mediaType,omitempty"`
	Title         string      `json:"title"`
	Desc          string      `json:"desc,omitempty"`
	Skills        coerce.List `json:"skills"`
	From          coerce.Date `json:"from"`
	To            coerce.Date `json:"to"`
	IsPublished   bool        `json:"isPublished"`
}

type AdminProfile struct {
	ID            string          `json:"id,omitempty"`
	Fname         string          `json:"Fname"`
	Lname         string          `json:"Lname"`
	Email         string          `json:"email"`
	Description   string          `json:"description,omitempty"`
	Resume        string          `json:"resume,omitempty"`
	Avatar        string          `json:"avatar,omitempty"`
	Qualification []Qualification `json:"qualification"`
}

func (p AdminProfile) FullName() string {
	return strings.TrimSpace(p.Fname + " " + p.Lname)
}

// PublishedQualifications keeps the entries the public timeline may show.
func (p AdminProfile) PublishedQualifications() []Qualification {
	out := make([]Qualification, 0, len(p.Qualification))
	for _, q := range p.Qualification {
		if q.IsPublished {
			out = append(out, q)
		}
	}
	return out
}

// QualificationForm is one row of the qualifications editor.
type QualificationForm struct {
	ID            string    `json:"_id,omitempty" yaml:"id,omitempty"`
	InstituteLink string    `json:"instituteLink" yaml:"instituteLink"`
	MediaURL      string    `json:"mediaUrl" yaml:"mediaUrl"`
	MediaType     MediaType `json:"mediaType" yaml:"mediaType"`
	Title         string    `json:"title" yaml:"title"`
	Desc          string    `json:"desc" yaml:"desc"`
	Skills        string    `json:"skills" yaml:"skills"`
	From          string    `json:"from" yaml:"from"`
	To            string    `json:"to" yaml:"to"`
	IsPublished   bool      `json:"isPublished" yaml:"isPublished"`
}

func NewQualificationForm() QualificationForm {
	return QualificationForm{MediaType: MediaSVG}
}

func QualificationFormFrom(q Qualification) QualificationForm {
	mt := q.MediaType
	if mt == "" {
		mt = MediaSVG
	}
	return QualificationForm{
		ID:            q.ID,
		InstituteLink: q.InstituteLink,
		MediaURL:      q.MediaURL,
		MediaType:     mt,
		Title:         q.Title,
		Desc:          q.Desc,
		Skills:        coerce.JoinList(q.Skills),
		From:          q.From.InputValue(),
		To:            q.To.InputValue(),
		IsPublished:   q.IsPublished,
	}
}

// Payload drops empty optional fields so the server keeps its own defaults.
func (f QualificationForm) Payload() map[string]any {
	p := map[string]any{
		"instituteLink": f.InstituteLink,
		"title":         f.Title,
		"skills":        coerce.SplitList(f.Skills),
		"isPublished":   f.IsPublished,
	}
	if f.ID != "" {
		p["_id"] = f.ID
	}
	if f.MediaURL != "" {
		p["mediaUrl"] = f.MediaURL
	}
	if f.MediaType != "" {
		p["mediaType"] = string(f.MediaType)
	}
	if d := strings.TrimSpace(f.Desc); d != "" {
		p["desc"] = d
	}
	if f.From != "" {
		p["from"] = f.From
	}
	if f.To != "" {
		p["to"] = f.To
	}
	return p
}

func (f QualificationForm) Validate() error {
	if f.MediaType != "" && f.MediaType != MediaSVG && f.MediaType != MediaImage {
		return apperror.NewInvalidInput("Media type must be svg or image", nil)
	}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, ok := coerce.ParseDate(d); !ok {
			return apperror.NewInvalidInput("Qualification dates must be YYYY-MM-DD", nil)
		}
	}
	return nil
}

// Form is the profile editor. Password fields are only sent when set.
type Form struct {
	Fname           string              `json:"Fname" yaml:"Fname"`
	Lname           string              `json:"Lname" yaml:"Lname"`
	Email           string              `json:"email" yaml:"email"`
	Description     string              `json:"description" yaml:"description"`
	Resume          string              `json:"resume" yaml:"resume"`
	Password        string              `json:"password" yaml:"password"`
	ConfirmPassword string              `json:"confirmPassword" yaml:"confirmPassword"`
	Qualifications  []QualificationForm `json:"qualifications" yaml:"qualifications"`
}

func FormFrom(p AdminProfile) Form {
	f := Form{
		Fname:       p.Fname,
		Lname:       p.Lname,
		Email:       p.Email,
		Description: p.Description,
		Resume:      p.Resume,
	}
	for _, q := range p.Qualification {
		f.Qualifications = append(f.Qualifications, QualificationFormFrom(q))
	}
	return f
}

// ValidatePassword applies only when either password field is filled in.
func ValidatePassword(password, confirm string) error {
	if password == "" && confirm == "" {
		return nil
	}
	if len(password) < MinPasswordLength {
		return apperror.NewInvalidInput(ErrPasswordTooShort.Error(), ErrPasswordTooShort)
	}
	if password != confirm {
		return apperror.NewInvalidInput(ErrPasswordMismatch.Error(), ErrPasswordMismatch)
	}
	return nil
}

func (f Form) Validate() error {
	if err := ValidatePassword(f.Password, f.ConfirmPassword); err != nil {
		return err
	}
	for _, q := range f.Qualifications {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Payload builds the profile update. qualification is sent whole, JSON encoded,
// and only when the editor holds at least one entry.
func (f Form) Payload() map[string]any {
	p := map[string]any{
		"Lname":       f.Lname,
		"description": f.Description,
	}
	if f.Fname != "" {
		p["Fname"] = f.Fname
	}
	if f.Email != "" {
		p["email"] = strings.TrimSpace(f.Email)
	}
	if f.Resume != "" {
		p["resume"] = f.Resume
	}
	if f.Password != "" {
		p["password"] = f.Password
	}
	if len(f.Qualifications) > 0 {
		p["qualification"] = QualificationsPayload(f.Qualifications)
	}
	return p
}

func QualificationsPayload(qs []QualificationForm) []map[string]any {
	out := make([]map[string]any, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.Payload())
	}
	return out
}
