// Package api exposes the diagnosis engine over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Skufu/diagnosis-assistant/internal/diagnosis"
	"github.com/Skufu/diagnosis-assistant/internal/disease"
	"github.com/Skufu/diagnosis-assistant/internal/history"
)

const (
	historyTimeout  = 2 * time.Second
	requestIDHeader = "X-Request-ID"
)

// Handler serves the diagnosis routes.
type Handler struct {
	engine       *diagnosis.Engine
	store        history.Store
	language     disease.Language
	modelVersion string
	logger       *slog.Logger
}

// Options configure a Handler. Store may be nil.
type Options struct {
	Store        history.Store
	Language     disease.Language
	ModelVersion string
	Logger       *slog.Logger
}

// NewHandler builds a Handler around engine.
func NewHandler(engine *diagnosis.Engine, opts Options) *Handler {
	if opts.Language == "" {
		opts.Language = disease.Vietnamese
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		engine:       engine,
		store:        opts.Store,
		language:     opts.Language,
		modelVersion: opts.ModelVersion,
		logger:       opts.Logger,
	}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/predict", h.predict)
	r.POST("/api/diagnosis/analyze", h.predict)
	r.GET("/symptoms", h.symptoms)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func (h *Handler) predict(c *gin.Context) {
	id := uuid.New()
	c.Header(requestIDHeader, id.String())
	logger := h.logger.With("request_id", id.String())

	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":  "payload_too_large",
				"detail": "request body exceeds the size limit",
			})
			return
		}
		respondError(c, &diagnosis.Error{Kind: diagnosis.KindInvalidPayload, Msg: "could not read request body", Err: err})
		return
	}

	req, preds, err := h.engine.WithLogger(logger).DiagnoseJSON(body)
	if err != nil {
		if diagnosis.IsClientError(err) {
			logger.Debug("diagnosis rejected", "error", err)
		}
		respondError(c, err)
		return
	}

	resp := diagnosis.NewResponse(preds, h.language)
	h.record(c.Request.Context(), logger, id, req, resp)
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) symptoms(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Symptoms())
}

func (h *Handler) record(ctx context.Context, logger *slog.Logger, id uuid.UUID, req diagnosis.Request, resp diagnosis.Response) {
	if h.store == nil {
		return
	}
	rec, err := history.NewRecord(req, resp, h.modelVersion)
	if err != nil {
		logger.Error("history record not built", "error", err)
		return
	}
	rec.ID = id
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if err := h.store.Save(ctx, rec); err != nil {
		logger.Error("history write failed", "error", err)
	}
}

func respondError(c *gin.Context, err error) {
	var de *diagnosis.Error
	if !errors.As(err, &de) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": string(diagnosis.KindInference), "detail": "internal error"})
		return
	}
	status := http.StatusBadRequest
	if de.Kind == diagnosis.KindInference {
		status = http.StatusInternalServerError
	}
	detail := de.Msg
	if detail == "" {
		detail = string(de.Kind)
	}
	c.JSON(status, gin.H{"error": string(de.Kind), "detail": detail})
}
