package event

import (
	"context"
	"errors"

	"github.com/khoahotran/personal-site/internal/domain"
)

type Publisher interface {
	PublishContentChange(ctx context.Context, change domain.ContentChange) error
}

// PublisherFunc lets a local reaction, such as dropping this process's cache,
// sit next to the Kafka producer.
type PublisherFunc func(ctx context.Context, change domain.ContentChange) error

func (f PublisherFunc) PublishContentChange(ctx context.Context, change domain.ContentChange) error {
	return f(ctx, change)
}

// Fanout delivers to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) PublishContentChange(ctx context.Context, change domain.ContentChange) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.PublishContentChange(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
