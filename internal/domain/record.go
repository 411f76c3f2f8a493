// Package domain holds what every portfolio collection shares.
package domain

import (
	"time"
)

// PublishedWhenAbsent is the value assumed when a record carries no published flag.
// Public endpoints pre-filter to published rows and omit the field, so absence
// must read as published. Flipping this hides live content.
const PublishedWhenAbsent = true

// Published resolves a nullable published flag.
func Published(p *bool) bool {
	if p == nil {
		return PublishedWhenAbsent
	}
	return *p
}

func Bool(b bool) *bool {
	return &b
}

// Record is implemented by every collection item the console manages.
type Record interface {
	Key() string
	SortOrder() int
	IsPublished() bool
	Created() time.Time
}

// Collection names as the remote API spells them.
const (
	CollectionExperiences = "experiences"
	CollectionProjects    = "projects"
	CollectionPosts       = "posts"
	CollectionContacts    = "contacts"
	CollectionAdmin       = "admin"
)

type ChangeAction string

const (
	ActionCreated   ChangeAction = "created"
	ActionUpdated   ChangeAction = "updated"
	ActionDeleted   ChangeAction = "deleted"
	ActionPublished ChangeAction = "published"
)

// ContentChange is emitted after a mutation the remote API accepted.
type ContentChange struct {
	Collection string       `json:"collection"`
	Action     ChangeAction `json:"action"`
	IDs        []string     `json:"ids,omitempty"`
	At         time.Time    `json:"at"`
}
