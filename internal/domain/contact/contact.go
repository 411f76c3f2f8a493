package contact

import (
	"net/mail"
	"strings"
	"time"

	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/coerce"
)

const DefaultType = "general"

// Contact is a message left through the public contact form. The console only reads and deletes them.
type Contact struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Topic     string         `json:"topic,omitempty"`
	Message   string         `json:"message"`
	Type      string         `json:"type"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt coerce.Date    `json:"createdAt"`
}

func (c Contact) Key() string        { return c.ID }
func (c Contact) SortOrder() int     { return 0 }
func (c Contact) IsPublished() bool  { return true }
func (c Contact) Created() time.Time { return c.CreatedAt.Time }

// Submission is the public form body sent to POST /contacts.
type Submission struct {
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Topic   string         `json:"topic"`
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func (s *Submission) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Topic = strings.TrimSpace(s.Topic)
	s.Message = strings.TrimSpace(s.Message)
	if s.Type == "" {
		s.Type = DefaultType
	}
}

func (s Submission) Validate() error {
	switch {
	case s.Name == "":
		return apperror.NewInvalidInput("Name is required", nil)
	case s.Email == "":
		return apperror.NewInvalidInput("Email is required", nil)
	case s.Message == "":
		return apperror.NewInvalidInput("Message is required", nil)
	}
	if addr, err := mail.ParseAddress(s.Email); err != nil || addr.Address != s.Email {
		return apperror.NewInvalidInput("Email address is not valid", err)
	}
	return nil
}

func (s Submission) Payload() map[string]any {
	p := map[string]any{
		"name":    s.Name,
		"email":   s.Email,
		"topic":   s.Topic,
		"message": s.Message,
		"type":    s.Type,
	}
	if len(s.Meta) > 0 {
		p["meta"] = s.Meta
	}
	return p
}

// Form is empty: contacts cannot be created or edited from the console.
type Form struct{}

type Schema struct{}

func (Schema) Collection() string          { return domain.CollectionContacts }
func (Schema) Noun() string                { return "contact" }
func (Schema) ReadOnly() bool              { return true }
func (Schema) FileFields() []string        { return nil }
func (Schema) NewForm(int) Form            { return Form{} }
func (Schema) FormFrom(Contact) Form       { return Form{} }
func (Schema) Payload(Form) map[string]any { return nil }

func (Schema) Validate(Form) error {
	return apperror.NewInvalidInput("Contacts are read-only", nil)
}
