package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voidcell/enclave/internal/engine"
	"github.com/voidcell/enclave/internal/infrastructure/logging"
)

// Handlers serves the debug/inspection endpoints over an engine.
type Handlers struct {
	eng *engine.Engine
	log *logging.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(eng *engine.Engine, log *logging.Logger) *Handlers {
	return &Handlers{eng: eng, log: log.Named("http")}
}

// Register mounts all routes on the router.
func (h *Handlers) Register(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/isolates", h.list)
	r.POST("/isolates", h.create)
	r.GET("/isolates/:id", h.get)
	r.DELETE("/isolates/:id", h.destroy)
	r.POST("/isolates/:id/run", h.run)
}

func (h *Handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"main":   h.eng.Main(),
	})
}

func (h *Handlers) list(c *gin.Context) {
	ids := h.eng.All()
	c.JSON(http.StatusOK, gin.H{
		"isolates": ids,
		"count":    len(ids),
	})
}

type createRequest struct {
	Isolated *bool `json:"isolated"`
}

func (h *Handlers) create(c *gin.Context) {
	req := createRequest{}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	isolated := true
	if req.Isolated != nil {
		isolated = *req.Isolated
	}

	id, err := h.eng.Create(isolated)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handlers) get(c *gin.Context) {
	id, ok := h.isolateID(c)
	if !ok {
		return
	}
	info, err := h.eng.Info(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         info.ID,
		"isolated":   info.Isolated,
		"running":    info.Running,
		"main":       info.Main,
		"created_at": info.CreatedAt,
	})
}

func (h *Handlers) destroy(c *gin.Context) {
	id, ok := h.isolateID(c)
	if !ok {
		return
	}
	if err := h.eng.Destroy(id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"destroyed": id})
}

type runRequest struct {
	Source string                 `json:"source" binding:"required"`
	Shared map[string]interface{} `json:"shared"`
}

func (h *Handlers) run(c *gin.Context) {
	id, ok := h.isolateID(c)
	if !ok {
		return
	}

	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.eng.Run(id, req.Source, req.Shared)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"id": id, "status": "ok"})
		return
	}

	var failure *engine.ScriptFailure
	if errors.As(err, &failure) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"id":      id,
			"status":  "script_failure",
			"name":    failure.Name,
			"message": failure.Message,
		})
		return
	}
	h.fail(c, err)
}

func (h *Handlers) isolateID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid isolate identifier"})
		return 0, false
	}
	return id, true
}

// fail maps taxonomy errors to HTTP statuses.
func (h *Handlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnknownIdentifier):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidTarget):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrNotShareable):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrCreationFailed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrEngineClosed):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
