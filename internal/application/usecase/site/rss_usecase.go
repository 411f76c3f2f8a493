package site

import (
	"context"
	"time"

	"github.com/gorilla/feeds"
	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/internal/domain"
)

// ExecuteFeed renders the public posts as RSS 2.0. Each item links to the
// original post on its platform.
func (uc *SiteUseCase) ExecuteFeed(ctx context.Context) (string, error) {
	return cached(ctx, uc, domain.CollectionPosts+":feed", func(ctx context.Context) (string, error) {
		uc.logger.Info("Generating RSS feed...")

		posts, err := uc.ExecutePosts(ctx)
		if err != nil {
			uc.logger.Error("Failed to list public posts for RSS", err)
			return "", err
		}

		feed := &feeds.Feed{
			Title:       uc.site.title,
			Link:        &feeds.Link{Href: uc.site.url},
			Description: uc.site.description,
			Author:      &feeds.Author{Name: uc.site.author},
			Created:     time.Now(),
		}

		for i, p := range posts {
			if i == uc.site.feedLimit {
				break
			}
			item := &feeds.Item{
				Id:          p.ID,
				Title:       p.Title,
				Link:        &feeds.Link{Href: p.Link},
				Description: p.Excerpt,
				Created:     p.CreatedAt.Time,
			}
			if !p.UpdatedAt.IsZero() {
				item.Updated = p.UpdatedAt.Time
			}
			feed.Items = append(feed.Items, item)
		}

		rss, err := feed.ToRss()
		if err != nil {
			return "", err
		}
		uc.logger.Info("RSS feed generated successfully", zap.Int("item_count", len(feed.Items)))
		return rss, nil
	})
}
