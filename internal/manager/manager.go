// Package manager drives one admin collection: loading the list, the create and
// edit form, deletes behind a confirmation, and staged publish toggles.
//
// The server is authoritative. Every successful mutation is followed by a full
// reload instead of a local patch; the only local edits are staged toggles held
// in a per-manager staging store until committed or discarded.
package manager

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/adapters/api"
	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/internal/normalize"
	"github.com/khoahotran/personal-site/internal/staging"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/logger"
)

// Schema adapts one entity type to the manager.
type Schema[T domain.Record, F any] interface {
	Collection() string
	Noun() string
	ReadOnly() bool
	FileFields() []string
	NewForm(nextOrder int) F
	FormFrom(rec T) F
	Validate(form F) error
	Payload(form F) map[string]any
}

// Resource is the remote collection the manager reads and writes.
type Resource interface {
	List(ctx context.Context, params url.Values) ([]byte, error)
	Create(ctx context.Context, body api.Body) ([]byte, error)
	Update(ctx context.Context, id string, body api.Body) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// ChangePublisher is told about every mutation the server accepted.
type ChangePublisher interface {
	PublishContentChange(ctx context.Context, change domain.ContentChange) error
}

type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusLoaded    Status = "loaded"
	StatusLoadError Status = "load_error"
)

type FormMode string

const (
	ModeCreate FormMode = "create"
	ModeEdit   FormMode = "edit"
)

type FormState[F any] struct {
	Mode   FormMode `json:"mode"`
	ID     string   `json:"id,omitempty"`
	Values F        `json:"values"`
}

const (
	msgSaveFailed   = "Failed to save"
	msgDeleteFailed = "Delete failed"
	msgCommitFailed = "Failed to save changes"
	fieldPublished  = "published"
)

type Options struct {
	Notifier  Notifier
	Publisher ChangePublisher
	Logger    logger.Logger
	Params    url.Values
	Now       func() time.Time
}

type Manager[T domain.Record, F any] struct {
	schema    Schema[T, F]
	resource  Resource
	staged    *staging.Store
	notifier  Notifier
	publisher ChangePublisher
	log       logger.Logger
	now       func() time.Time

	mu         sync.Mutex
	status     Status
	loadErr    string
	items      []T
	form       *FormState[F]
	submitting bool
	progress   int
	params     url.Values
	seq        uint64
	closed     bool
}

func New[T domain.Record, F any](schema Schema[T, F], res Resource, opts Options) *Manager[T, F] {
	m := &Manager[T, F]{
		schema:    schema,
		resource:  res,
		staged:    staging.New(),
		notifier:  opts.Notifier,
		publisher: opts.Publisher,
		log:       opts.Logger,
		now:       opts.Now,
		status:    StatusIdle,
		params:    cloneValues(opts.Params),
	}
	if m.notifier == nil {
		m.notifier = discardNotifier{}
	}
	if m.log == nil {
		m.log = logger.NewNopLogger()
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.log = m.log.With(zap.String("collection", schema.Collection()))
	return m
}

func (m *Manager[T, F]) Collection() string { return m.schema.Collection() }

// Load fetches the list. Each call takes a sequence number and a response older
// than the newest issued load is dropped, so overlapping reloads cannot leave a
// stale list behind. On success the staging store is cleared.
func (m *Manager[T, F]) Load(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.seq++
	seq := m.seq
	m.status = StatusLoading
	m.loadErr = ""
	params := cloneValues(m.params)
	m.mu.Unlock()

	var items []T
	body, err := m.resource.List(ctx, params)
	if err == nil {
		var raw []map[string]any
		raw, err = normalize.Items(body)
		if err == nil {
			items, err = normalize.Decode[T](raw)
		}
	}

	m.mu.Lock()
	if m.closed || seq != m.seq {
		m.mu.Unlock()
		m.log.Debug("dropping stale list response", zap.Uint64("seq", seq))
		return nil
	}
	if err != nil {
		msg := apperror.UserMessage(err, "Failed to load "+m.schema.Collection())
		m.status = StatusLoadError
		m.loadErr = msg
		m.mu.Unlock()
		m.log.Warn("list load failed", zap.Error(err))
		m.notify(LevelError, msg)
		return err
	}
	m.items = items
	m.status = StatusLoaded
	m.mu.Unlock()

	m.staged.Discard()
	return nil
}

// SetParam sets a list query parameter; an empty value removes it. The next Load uses it.
func (m *Manager[T, F]) SetParam(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == "" {
		m.params.Del(key)
		return
	}
	m.params.Set(key, value)
}

func (m *Manager[T, F]) Param(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params.Get(key)
}

// NextOrder is max(existing orders, 0) + 1.
func (m *Manager[T, F]) NextOrder() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return nextOrder(m.items)
}

func nextOrder[T domain.Record](items []T) int {
	highest := 0
	for _, it := range items {
		highest = max(highest, it.SortOrder())
	}
	return highest + 1
}

func (m *Manager[T, F]) StartCreate() (F, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero F
	if err := m.writable(); err != nil {
		return zero, err
	}
	values := m.schema.NewForm(nextOrder(m.items))
	m.form = &FormState[F]{Mode: ModeCreate, Values: values}
	m.progress = 0
	return values, nil
}

// StartEdit opens the form for id, pre-filled from the loaded record.
func (m *Manager[T, F]) StartEdit(id string) (F, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero F
	if err := m.writable(); err != nil {
		return zero, err
	}
	rec, ok := m.find(id)
	if !ok {
		return zero, apperror.NewNotFound(m.schema.Noun(), id)
	}
	values := m.schema.FormFrom(rec)
	m.form = &FormState[F]{Mode: ModeEdit, ID: id, Values: values}
	m.progress = 0
	return values, nil
}

func (m *Manager[T, F]) CancelForm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.form = nil
	m.progress = 0
}

// Submit validates values, then creates or updates depending on the open form.
// Attached files switch the body to multipart and report upload progress.
// On success the form closes and the list reloads; on failure the form stays
// open holding values so the admin can retry. A failed reload does not turn a
// saved record into an error.
func (m *Manager[T, F]) Submit(ctx context.Context, values F, files []api.File, progress api.ProgressFunc) error {
	m.mu.Lock()
	if err := m.writable(); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.form == nil {
		m.mu.Unlock()
		return apperror.NewInvalidInput("No form is open", nil)
	}
	if m.submitting {
		m.mu.Unlock()
		return apperror.NewConflict(m.schema.Noun(), "save", "in progress")
	}
	m.form.Values = values
	m.submitting = true
	m.progress = 0
	mode, id := m.form.Mode, m.form.ID
	m.mu.Unlock()

	if err := m.validate(values, files); err != nil {
		m.mu.Lock()
		m.submitting = false
		m.mu.Unlock()
		m.notify(LevelError, apperror.UserMessage(err, msgSaveFailed))
		return err
	}

	payload := m.schema.Payload(values)
	var body api.Body = api.JSONBody(payload)
	if len(files) > 0 {
		body = api.NewMultipart(payload, files...).OnProgress(func(p int) {
			m.setProgress(p)
			if progress != nil {
				progress(p)
			}
		})
	}

	var (
		err    error
		action domain.ChangeAction
		resp   []byte
	)
	if mode == ModeEdit {
		action = domain.ActionUpdated
		resp, err = m.resource.Update(ctx, id, body)
	} else {
		action = domain.ActionCreated
		resp, err = m.resource.Create(ctx, body)
	}

	m.mu.Lock()
	m.submitting = false
	m.progress = 0
	if err != nil {
		m.mu.Unlock()
		m.log.Warn("save failed", zap.String("mode", string(mode)), zap.String("id", id), zap.Error(err))
		m.notify(LevelError, apperror.UserMessage(err, msgSaveFailed))
		return err
	}
	m.form = nil
	m.mu.Unlock()

	if id == "" {
		if item, perr := normalize.Item(resp, m.schema.Noun()); perr == nil {
			id, _ = item["id"].(string)
		}
	}
	m.notify(LevelSuccess, title(m.schema.Noun())+" "+string(action))
	m.publish(ctx, action, id)
	m.reload(ctx)
	return nil
}

// Delete removes id once confirm agrees. A nil or declining confirmer stops
// before any request is made.
func (m *Manager[T, F]) Delete(ctx context.Context, id string, confirm Confirmer) error {
	if m.isClosed() {
		return nil
	}
	prompt := Prompt{
		Title:       "Delete this " + m.schema.Noun() + "?",
		Description: "This action cannot be undone.",
	}
	if confirm == nil || !confirm.Confirm(ctx, prompt) {
		return apperror.NewConfirmationRequired("delete " + m.schema.Noun())
	}

	if err := m.resource.Delete(ctx, id); err != nil {
		m.log.Warn("delete failed", zap.String("id", id), zap.Error(err))
		m.notify(LevelError, apperror.UserMessage(err, msgDeleteFailed))
		return err
	}
	m.notify(LevelSuccess, title(m.schema.Noun())+" deleted")
	m.publish(ctx, domain.ActionDeleted, id)
	m.reload(ctx)
	return nil
}

// TogglePublishStaged flips the effective published flag of id in the staging
// store without calling the server. It returns the new effective value.
func (m *Manager[T, F]) TogglePublishStaged(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return false, err
	}
	rec, ok := m.find(id)
	if !ok {
		return false, apperror.NewNotFound(m.schema.Noun(), id)
	}
	committed := rec.IsPublished()
	current, _ := m.staged.Effective(id, fieldPublished, committed).(bool)
	m.staged.Stage(id,
		map[string]any{fieldPublished: committed},
		map[string]any{fieldPublished: !current},
	)
	return !current, nil
}

// EffectivePublished is the staged value when one exists, else the loaded value.
func (m *Manager[T, F]) EffectivePublished(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.find(id)
	if !ok {
		return false, apperror.NewNotFound(m.schema.Noun(), id)
	}
	v, _ := m.staged.Effective(id, fieldPublished, rec.IsPublished()).(bool)
	return v, nil
}

func (m *Manager[T, F]) HasPending() bool {
	return m.staged.HasPending()
}

// CommitStaged sends one PATCH per staged record in parallel. When all succeed
// the list is reloaded; when any fails the staged toggles stay for a retry and
// the first failure's message is shown.
func (m *Manager[T, F]) CommitStaged(ctx context.Context) error {
	if m.isClosed() || !m.staged.HasPending() {
		return nil
	}
	ids := m.staged.IDs()
	err := m.staged.Commit(ctx, func(ctx context.Context, id string, partial map[string]any) error {
		_, err := m.resource.Update(ctx, id, api.JSONBody(partial))
		return err
	})
	if err != nil {
		m.log.Warn("staged commit failed", zap.Strings("ids", ids), zap.Error(err))
		m.notify(LevelError, apperror.UserMessage(err, msgCommitFailed))
		return err
	}
	m.notify(LevelSuccess, "Changes saved")
	m.publish(ctx, domain.ActionPublished, ids...)
	m.reload(ctx)
	return nil
}

// reload refreshes the list after a write that already succeeded. A failed
// reload lands in the view as StatusLoadError with its own notice, so the
// write itself still reports success.
func (m *Manager[T, F]) reload(ctx context.Context) {
	if err := m.Load(ctx); err != nil {
		m.log.Debug("reload after write failed", zap.Error(err))
	}
}

// DiscardStaged drops staged toggles without any request.
func (m *Manager[T, F]) DiscardStaged() {
	m.staged.Discard()
}

// Close detaches the manager; later responses and calls leave its state untouched.
func (m *Manager[T, F]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *Manager[T, F]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items)
}

func (m *Manager[T, F]) Find(id string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(id)
}

func (m *Manager[T, F]) find(id string) (T, bool) {
	for _, it := range m.items {
		if it.Key() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (m *Manager[T, F]) writable() error {
	if m.closed {
		return apperror.NewInvalidInput("This list is no longer active", nil)
	}
	if m.schema.ReadOnly() {
		return apperror.NewInvalidInput(title(m.schema.Collection())+" are read-only", nil)
	}
	return nil
}

func (m *Manager[T, F]) validate(values F, files []api.File) error {
	if err := m.schema.Validate(values); err != nil {
		return err
	}
	allowed := m.schema.FileFields()
	for _, f := range files {
		if !slices.Contains(allowed, f.Field) {
			return apperror.NewInvalidInput("Unexpected file field "+f.Field, nil)
		}
	}
	return nil
}

func (m *Manager[T, F]) setProgress(p int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.progress = p
	}
}

func (m *Manager[T, F]) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager[T, F]) notify(level Level, msg string) {
	if m.isClosed() {
		return
	}
	m.notifier.Notify(Notice{Level: level, Message: msg, At: m.now()})
}

func (m *Manager[T, F]) publish(ctx context.Context, action domain.ChangeAction, ids ...string) {
	if m.publisher == nil {
		return
	}
	change := domain.ContentChange{
		Collection: m.schema.Collection(),
		Action:     action,
		IDs:        slices.DeleteFunc(slices.Clone(ids), func(s string) bool { return s == "" }),
		At:         m.now().UTC(),
	}
	if err := m.publisher.PublishContentChange(ctx, change); err != nil {
		m.log.Warn("failed to publish content change", zap.Error(err))
	}
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = slices.Clone(vals)
	}
	return out
}
