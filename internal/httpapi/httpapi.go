// Package httpapi exposes stage estimation over HTTP with gin.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pancstage/pancstage/core"
	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/schema"
)

// RequestIDHeader carries the caller's request id, or one generated per request.
const RequestIDHeader = "X-Request-ID"

const shutdownTimeout = 5 * time.Second

// handler holds the dependencies shared by the route handlers.
type handler struct {
	cfg *contract.Config
	est *core.Estimator
	mgr contract.StoreManager
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg *contract.Config, est *core.Estimator, mgr contract.StoreManager) *gin.Engine {
	h := &handler{cfg: cfg, est: est, mgr: mgr}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestIDMiddleware(), corsMiddleware())

	r.GET("/health", h.health)
	api := r.Group("/api/v1")
	{
		api.GET("/profile", h.profile)
		api.POST("/predictions", h.predict)
	}
	return r
}

// Serve runs the API on cfg.ListenAddr until ctx is canceled.
func Serve(ctx context.Context, cfg *contract.Config, est *core.Estimator, mgr contract.StoreManager) error {
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           NewRouter(cfg, est, mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Printf("🌐 Serving stage estimates on %s\n", cfg.ListenAddr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *handler) health(c *gin.Context) {
	status := "ok"
	if h.est == nil {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *handler) profile(c *gin.Context) {
	switch {
	case h.est != nil:
		c.JSON(http.StatusOK, h.est.Profile())
	case h.cfg != nil && h.cfg.Profile != nil:
		c.JSON(http.StatusOK, h.cfg.Profile)
	default:
		c.JSON(http.StatusOK, schema.DefaultClinicalProfile())
	}
}

func (h *handler) predict(c *gin.Context) {
	if h.est == nil {
		writeError(c, fmt.Errorf("%w: no classifier loaded", schema.ErrModelUnavailable))
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, fmt.Errorf("%w: malformed JSON body: %v", schema.ErrInvalidInput, err))
		return
	}
	fields, err := bodyFields(body)
	if err != nil {
		writeError(c, err)
		return
	}

	pred, err := core.RunPredict(c.Request.Context(), h.cfg, h.mgr, h.est, fields, "api")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.EnrichPredictions([]schema.Prediction{*pred})[0])
}

// bodyFields converts JSON values to the text form ParseLabPanel expects.
func bodyFields(body map[string]any) (map[string]string, error) {
	fields := make(map[string]string, len(body))
	for key, value := range body {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case float64:
			fields[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			fields[key] = v.String()
		case nil:
			fields[key] = ""
		default:
			if _, ok := schema.FeatureIndex(key); ok {
				return nil, fmt.Errorf("%w: %s must be a number or string", schema.ErrInvalidInput, key)
			}
		}
	}
	return fields, nil
}

// statusFor maps estimator errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrUnknownStage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, schema.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"error":      err.Error(),
		"request_id": c.GetString("request_id"),
	})
}
