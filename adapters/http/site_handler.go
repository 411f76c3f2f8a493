package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/personal-site/internal/application/usecase/site"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/logger"
)

type SiteHandler struct {
	siteUseCase *site.SiteUseCase
	logger      logger.Logger
}

func NewSiteHandler(uc *site.SiteUseCase, log logger.Logger) *SiteHandler {
	return &SiteHandler{siteUseCase: uc, logger: log}
}

func (h *SiteHandler) Experiences(c *gin.Context) {
	out, err := h.siteUseCase.ExecuteExperiences(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *SiteHandler) Projects(c *gin.Context) {
	out, err := h.siteUseCase.ExecuteProjects(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *SiteHandler) Posts(c *gin.Context) {
	out, err := h.siteUseCase.ExecutePosts(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *SiteHandler) Qualifications(c *gin.Context) {
	out, err := h.siteUseCase.ExecuteQualifications(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *SiteHandler) Hero(c *gin.Context) {
	out, err := h.siteUseCase.ExecuteHero(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *SiteHandler) SubmitContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid contact form", err))
		return
	}
	if err := h.siteUseCase.ExecuteSubmitContact(c.Request.Context(), req.submission()); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Message sent"})
}
