package profile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/adapters/api"
	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/internal/domain/profile"
	"github.com/khoahotran/personal-site/internal/manager"
	"github.com/khoahotran/personal-site/internal/normalize"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/logger"
)

const (
	msgUpdateFailed         = "Failed to update"
	msgQualificationsFailed = "Failed to save qualifications"
)

// AdminAPI is the part of the /admin resource the profile editor needs.
type AdminAPI interface {
	Me(ctx context.Context) ([]byte, error)
	Update(ctx context.Context, body api.Body) ([]byte, error)
}

type ProfileUseCase struct {
	admin     AdminAPI
	notifier  manager.Notifier
	publisher manager.ChangePublisher
	logger    logger.Logger
}

func NewProfileUseCase(admin AdminAPI, notifier manager.Notifier, publisher manager.ChangePublisher, log logger.Logger) *ProfileUseCase {
	if notifier == nil {
		notifier = manager.NotifierFunc(func(manager.Notice) {})
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ProfileUseCase{admin: admin, notifier: notifier, publisher: publisher, logger: log}
}

type GetProfileOutput struct {
	Profile profile.AdminProfile `json:"profile"`
	Form    profile.Form         `json:"form"`
}

func (uc *ProfileUseCase) ExecuteGetProfile(ctx context.Context) (*GetProfileOutput, error) {
	body, err := uc.admin.Me(ctx)
	if err != nil {
		return nil, err
	}
	p, err := decodeAdmin(body)
	if err != nil {
		return nil, err
	}
	return &GetProfileOutput{Profile: p, Form: profile.FormFrom(p)}, nil
}

type UpdateProfileInput struct {
	Form     profile.Form
	Avatar   *api.File
	Progress api.ProgressFunc
}

type UpdateProfileOutput struct {
	Profile profile.AdminProfile `json:"profile"`
}

// ExecuteUpdateProfile sends the profile as multipart so an avatar can ride along.
// Password fields are checked locally and never reach the server when invalid.
func (uc *ProfileUseCase) ExecuteUpdateProfile(ctx context.Context, input UpdateProfileInput) (*UpdateProfileOutput, error) {
	if err := input.Form.Validate(); err != nil {
		uc.fail(err, msgUpdateFailed)
		return nil, err
	}

	var files []api.File
	if input.Avatar != nil {
		avatar := *input.Avatar
		avatar.Field = "avatar"
		files = append(files, avatar)
	}
	body := api.NewMultipart(input.Form.Payload(), files...)
	if input.Progress != nil && len(files) > 0 {
		body = body.OnProgress(input.Progress)
	}

	out, err := uc.save(ctx, body, msgUpdateFailed)
	if err != nil {
		return nil, err
	}
	uc.notify(manager.LevelSuccess, "Profile updated")
	return &UpdateProfileOutput{Profile: out}, nil
}

// ExecuteSaveQualifications persists the qualifications list alone.
func (uc *ProfileUseCase) ExecuteSaveQualifications(ctx context.Context, qualifications []profile.QualificationForm) (*UpdateProfileOutput, error) {
	for _, q := range qualifications {
		if err := q.Validate(); err != nil {
			uc.fail(err, msgQualificationsFailed)
			return nil, err
		}
	}
	body := api.NewMultipart(map[string]any{
		"qualification": profile.QualificationsPayload(qualifications),
	})

	out, err := uc.save(ctx, body, msgQualificationsFailed)
	if err != nil {
		return nil, err
	}
	uc.notify(manager.LevelSuccess, "Qualifications saved")
	return &UpdateProfileOutput{Profile: out}, nil
}

func (uc *ProfileUseCase) save(ctx context.Context, body api.Body, fallback string) (profile.AdminProfile, error) {
	resp, err := uc.admin.Update(ctx, body)
	if err != nil {
		uc.logger.Warn("admin update failed", zap.Error(err))
		uc.fail(err, fallback)
		return profile.AdminProfile{}, err
	}

	p, err := decodeAdmin(resp)
	if err != nil || p.Email == "" {
		// Older servers answer the update without the admin; read it back.
		if fresh, ferr := uc.ExecuteGetProfile(ctx); ferr == nil {
			p = fresh.Profile
		}
	}

	if uc.publisher != nil {
		change := domain.ContentChange{Collection: domain.CollectionAdmin, Action: domain.ActionUpdated, At: time.Now().UTC()}
		if p.ID != "" {
			change.IDs = []string{p.ID}
		}
		if err := uc.publisher.PublishContentChange(ctx, change); err != nil {
			uc.logger.Warn("failed to publish content change", zap.Error(err))
		}
	}
	return p, nil
}

func (uc *ProfileUseCase) fail(err error, fallback string) {
	uc.notify(manager.LevelError, apperror.UserMessage(err, fallback))
}

func (uc *ProfileUseCase) notify(level manager.Level, msg string) {
	uc.notifier.Notify(manager.Notice{Level: level, Message: msg, At: time.Now()})
}

func decodeAdmin(body []byte) (profile.AdminProfile, error) {
	var p profile.AdminProfile
	item, err := normalize.Item(body, "admin")
	if err != nil {
		return p, err
	}
	err = normalize.DecodeOne(item, &p)
	return p, err
}
