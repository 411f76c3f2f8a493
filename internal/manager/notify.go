package manager

import (
	"context"
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notice is a transient message for the admin, the console's toast.
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(n Notice)
}

type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}

// Inbox keeps the most recent notices until they are drained.
type Inbox struct {
	mu      sync.Mutex
	limit   int
	notices []Notice
}

func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = 20
	}
	return &Inbox{limit: limit}
}

func (b *Inbox) Notify(n Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, n)
	if over := len(b.notices) - b.limit; over > 0 {
		b.notices = b.notices[over:]
	}
}

// Drain returns and forgets the pending notices, oldest first.
func (b *Inbox) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

// Prompt is what the admin is asked before a destructive action.
type Prompt struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) bool
}

type ConfirmFunc func(ctx context.Context, p Prompt) bool

func (f ConfirmFunc) Confirm(ctx context.Context, p Prompt) bool { return f(ctx, p) }

// Confirmed is a Confirmer for callers that collected the answer up front,
// such as the console's X-Confirm header or the CLI's --yes flag.
type Confirmed bool

func (c Confirmed) Confirm(context.Context, Prompt) bool { return bool(c) }
