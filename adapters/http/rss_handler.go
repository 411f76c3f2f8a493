package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/personal-site/internal/application/usecase/site"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/logger"
)

type RSSHandler struct {
	siteUseCase *site.SiteUseCase
	logger      logger.Logger
}

func NewRSSHandler(uc *site.SiteUseCase, log logger.Logger) *RSSHandler {
	return &RSSHandler{
		siteUseCase: uc,
		logger:      log,
	}
}

func (h *RSSHandler) GenerateRSS(c *gin.Context) {
	feed, err := h.siteUseCase.ExecuteFeed(c.Request.Context())
	if err != nil {
		c.Error(apperror.NewUpstream("failed to generate RSS feed", "", err))
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(feed))
}
