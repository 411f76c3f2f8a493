package http

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/personal-site/adapters/api"
	profileUC "github.com/khoahotran/personal-site/internal/application/usecase/profile"
	"github.com/khoahotran/personal-site/internal/domain/profile"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/logger"
)

type ProfileHandler struct {
	logger logger.Logger
}

func NewProfileHandler(log logger.Logger) *ProfileHandler {
	return &ProfileHandler{logger: log}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	con, _ := GetConsoleFromGinContext(c)
	out, err := con.Profile.ExecuteGetProfile(c.Request.Context())
	if err != nil {
		respondError(c, con, err)
		return
	}
	con.Session.SetProfile(out.Profile)
	respond(c, http.StatusOK, con, out)
}

// UpdateProfile takes the form as JSON, or as multipart with the form JSON in
// a "form" field and an optional "avatar" file.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	con, _ := GetConsoleFromGinContext(c)
	var input profileUC.UpdateProfileInput

	if isMultipart(c) {
		if err := json.Unmarshal([]byte(c.PostForm("form")), &input.Form); err != nil {
			c.Error(apperror.NewInvalidInput("invalid profile form", err))
			return
		}
		if fh, err := c.FormFile("avatar"); err == nil {
			f, closeFn, err := openUpload("avatar", fh)
			if err != nil {
				c.Error(apperror.NewInvalidInput("cannot read avatar upload", err))
				return
			}
			defer closeFn()
			input.Avatar = &f
		}
	} else if err := c.ShouldBindJSON(&input.Form); err != nil {
		c.Error(apperror.NewInvalidInput("invalid profile form", err))
		return
	}

	out, err := con.Profile.ExecuteUpdateProfile(c.Request.Context(), input)
	if err != nil {
		respondError(c, con, err)
		return
	}
	con.Session.SetProfile(out.Profile)
	respond(c, http.StatusOK, con, out)
}

func (h *ProfileHandler) SaveQualifications(c *gin.Context) {
	con, _ := GetConsoleFromGinContext(c)
	var req qualificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid qualifications", err))
		return
	}
	out, err := con.Profile.ExecuteSaveQualifications(c.Request.Context(), req.Qualifications)
	if err != nil {
		respondError(c, con, err)
		return
	}
	con.Session.SetProfile(out.Profile)
	respond(c, http.StatusOK, con, out)
}

// NewQualification returns a blank editor row with the defaults applied.
func (h *ProfileHandler) NewQualification(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": profile.NewQualificationForm()})
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func openUpload(field string, fh *multipart.FileHeader) (api.File, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return api.File{}, func() {}, err
	}
	return api.File{
		Field:       field,
		Name:        fh.Filename,
		Content:     f,
		ContentType: fh.Header.Get("Content-Type"),
	}, func() { _ = f.Close() }, nil
}
