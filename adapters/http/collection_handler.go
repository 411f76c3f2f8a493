package http

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/personal-site/adapters/api"
	"github.com/khoahotran/personal-site/internal/console"
	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/internal/manager"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/logger"
)

// CollectionHandler exposes one list manager of the caller's console.
type CollectionHandler[T domain.Record, F any] struct {
	pick    func(*console.Console) *manager.Manager[T, F]
	filters []string
	logger  logger.Logger
}

// NewCollectionHandler serves the manager pick returns. filters names the
// query parameters a reload may set, such as lastDays for contacts.
func NewCollectionHandler[T domain.Record, F any](pick func(*console.Console) *manager.Manager[T, F], log logger.Logger, filters ...string) *CollectionHandler[T, F] {
	return &CollectionHandler[T, F]{pick: pick, filters: filters, logger: log}
}

func (h *CollectionHandler[T, F]) Register(rg *gin.RouterGroup) {
	rg.GET("", h.State)
	rg.POST("/reload", h.Reload)
	rg.POST("/form", h.StartCreate)
	rg.DELETE("/form", h.CancelForm)
	rg.POST("/form/submit", h.Submit)
	rg.POST("/commit", h.Commit)
	rg.POST("/discard", h.Discard)
	rg.POST("/:id/form", h.StartEdit)
	rg.POST("/:id/toggle", h.Toggle)
	rg.DELETE("/:id", h.Delete)
}

func (h *CollectionHandler[T, F]) manager(c *gin.Context) (*console.Console, *manager.Manager[T, F]) {
	con, _ := GetConsoleFromGinContext(c)
	return con, h.pick(con)
}

// State returns the current view, loading the list the first time it is asked for.
func (h *CollectionHandler[T, F]) State(c *gin.Context) {
	con, m := h.manager(c)
	if m.View().Status == manager.StatusIdle {
		if err := m.Load(c.Request.Context()); err != nil {
			respondError(c, con, err)
			return
		}
	}
	respond(c, http.StatusOK, con, m.View())
}

func (h *CollectionHandler[T, F]) Reload(c *gin.Context) {
	con, m := h.manager(c)
	query := c.Request.URL.Query()
	for key := range query {
		if slices.Contains(h.filters, key) {
			m.SetParam(key, query.Get(key))
		}
	}
	if err := m.Load(c.Request.Context()); err != nil {
		respondError(c, con, err)
		return
	}
	respond(c, http.StatusOK, con, m.View())
}

func (h *CollectionHandler[T, F]) StartCreate(c *gin.Context) {
	con, m := h.manager(c)
	if _, err := m.StartCreate(); err != nil {
		respondError(c, con, err)
		return
	}
	respond(c, http.StatusOK, con, m.View())
}

func (h *CollectionHandler[T, F]) StartEdit(c *gin.Context) {
	con, m := h.manager(c)
	if _, err := m.StartEdit(c.Param("id")); err != nil {
		respondError(c, con, err)
		return
	}
	respond(c, http.StatusOK, con, m.View())
}

func (h *CollectionHandler[T, F]) CancelForm(c *gin.Context) {
	con, m := h.manager(c)
	m.CancelForm()
	respond(c, http.StatusOK, con, m.View())
}

// Submit takes the form values as JSON, or as multipart with the values JSON
// in a "values" field and one file part per upload field.
func (h *CollectionHandler[T, F]) Submit(c *gin.Context) {
	con, m := h.manager(c)
	var (
		values F
		files  []api.File
	)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			c.Error(apperror.NewInvalidInput("invalid multipart form", err))
			return
		}
		if err := json.Unmarshal([]byte(c.PostForm("values")), &values); err != nil {
			c.Error(apperror.NewInvalidInput("invalid form values", err))
			return
		}
		for field, headers := range form.File {
			for _, fh := range headers {
				f, closeFn, err := openUpload(field, fh)
				if err != nil {
					c.Error(apperror.NewInvalidInput("cannot read upload "+field, err))
					return
				}
				defer closeFn()
				files = append(files, f)
			}
		}
	} else if err := c.ShouldBindJSON(&values); err != nil {
		c.Error(apperror.NewInvalidInput("invalid form values", err))
		return
	}

	if err := m.Submit(c.Request.Context(), values, files, nil); err != nil {
		respondError(c, con, err)
		return
	}
	respond(c, http.StatusOK, con, m.View())
}

// Delete requires the X-Confirm: yes header, the HTTP form of the confirmation prompt.
func (h *CollectionHandler[T, F]) Delete(c *gin.Context) {
	con, m := h.manager(c)
	confirmed := manager.Confirmed(strings.EqualFold(c.GetHeader(HeaderConfirm), "yes"))
	if err := m.Delete(c.Request.Context(), c.Param("id"), confirmed); err != nil {
		respondError(c, con, err)
		return
	}
	respond(c, http.StatusOK, con, m.View())
}

func (h *CollectionHandler[T, F]) Toggle(c *gin.Context) {
	con, m := h.manager(c)
	if _, err := m.TogglePublishStaged(c.Param("id")); err != nil {
		respondError(c, con, err)
		return
	}
	respond(c, http.StatusOK, con, m.View())
}

func (h *CollectionHandler[T, F]) Commit(c *gin.Context) {
	con, m := h.manager(c)
	if err := m.CommitStaged(c.Request.Context()); err != nil {
		respondError(c, con, err)
		return
	}
	respond(c, http.StatusOK, con, m.View())
}

func (h *CollectionHandler[T, F]) Discard(c *gin.Context) {
	con, m := h.manager(c)
	m.DiscardStaged()
	respond(c, http.StatusOK, con, m.View())
}
