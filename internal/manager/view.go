package manager

import (
	"github.com/khoahotran/personal-site/internal/domain"
)

// Row is one loaded record with its effective publish state.
type Row[T domain.Record] struct {
	Record    T    `json:"record"`
	Published bool `json:"published"`
	Staged    bool `json:"staged"`
}

// View is a consistent snapshot of a manager for rendering.
type View[T domain.Record, F any] struct {
	Collection string            `json:"collection"`
	Status     Status            `json:"status"`
	Error      string            `json:"error,omitempty"`
	Items      []Row[T]          `json:"items"`
	Form       *FormState[F]     `json:"form,omitempty"`
	Submitting bool              `json:"submitting"`
	Progress   int               `json:"progress"`
	Pending    []string          `json:"pending"`
	HasPending bool              `json:"hasPending"`
	NextOrder  int               `json:"nextOrder"`
	ReadOnly   bool              `json:"readOnly"`
	Filters    map[string]string `json:"filters,omitempty"`
}

func (m *Manager[T, F]) View() View[T, F] {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]Row[T], 0, len(m.items))
	for _, it := range m.items {
		id := it.Key()
		published, _ := m.staged.Effective(id, fieldPublished, it.IsPublished()).(bool)
		rows = append(rows, Row[T]{
			Record:    it,
			Published: published,
			Staged:    m.staged.Pending(id) != nil,
		})
	}

	v := View[T, F]{
		Collection: m.schema.Collection(),
		Status:     m.status,
		Error:      m.loadErr,
		Items:      rows,
		Submitting: m.submitting,
		Progress:   m.progress,
		Pending:    m.staged.IDs(),
		HasPending: m.staged.HasPending(),
		NextOrder:  nextOrder(m.items),
		ReadOnly:   m.schema.ReadOnly(),
	}
	if m.form != nil {
		f := *m.form
		v.Form = &f
	}
	if len(m.params) > 0 {
		v.Filters = make(map[string]string, len(m.params))
		for k := range m.params {
			v.Filters[k] = m.params.Get(k)
		}
	}
	return v
}
