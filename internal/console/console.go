// Package console composes everything one signed-in admin works with: an API
// client, the session and one list manager per collection.
package console

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/adapters/api"
	profileUC "github.com/khoahotran/personal-site/internal/application/usecase/profile"
	"github.com/khoahotran/personal-site/internal/config"
	"github.com/khoahotran/personal-site/internal/domain/contact"
	"github.com/khoahotran/personal-site/internal/domain/experience"
	"github.com/khoahotran/personal-site/internal/domain/post"
	"github.com/khoahotran/personal-site/internal/domain/project"
	"github.com/khoahotran/personal-site/internal/manager"
	"github.com/khoahotran/personal-site/internal/session"
	"github.com/khoahotran/personal-site/pkg/logger"
)

type Console struct {
	ID      string
	Session *session.Session
	Client  *api.Client
	Inbox   *manager.Inbox
	Profile *profileUC.ProfileUseCase

	Experiences *manager.Manager[experience.Experience, experience.Form]
	Projects    *manager.Manager[project.Project, project.Form]
	Posts       *manager.Manager[post.Post, post.Form]
	Contacts    *manager.Manager[contact.Contact, contact.Form]

	closeOnce sync.Once
}

type Deps struct {
	Config    config.Config
	Tokens    session.TokenStore
	Publisher manager.ChangePublisher
	Logger    logger.Logger
	APIOpts   []api.Option
}

// New builds a console and loads the persisted token. It does not call the
// API; Resolve on the session does that.
func New(ctx context.Context, id string, d Deps) (*Console, error) {
	log := d.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.With(zap.String("console", id))

	sess := session.New(d.Tokens, log)
	client, err := api.NewClient(d.Config, sess, log, d.APIOpts...)
	if err != nil {
		return nil, err
	}
	if err := sess.Init(ctx, client.Admin()); err != nil {
		return nil, err
	}

	inbox := manager.NewInbox(20)
	opts := manager.Options{Notifier: inbox, Publisher: d.Publisher, Logger: log}

	return &Console{
		ID:          id,
		Session:     sess,
		Client:      client,
		Inbox:       inbox,
		Profile:     profileUC.NewProfileUseCase(client.Admin(), inbox, d.Publisher, log),
		Experiences: manager.New[experience.Experience, experience.Form](experience.Schema{}, client.Experiences(), opts),
		Projects:    manager.New[project.Project, project.Form](project.Schema{}, client.Projects(), opts),
		Posts:       manager.New[post.Post, post.Form](post.Schema{}, client.Posts(), opts),
		Contacts:    manager.New[contact.Contact, contact.Form](contact.Schema{}, client.Contacts(), opts),
	}, nil
}

// Close detaches every manager so in-flight responses are dropped.
func (c *Console) Close() {
	c.closeOnce.Do(func() {
		c.Experiences.Close()
		c.Projects.Close()
		c.Posts.Close()
		c.Contacts.Close()
	})
}
