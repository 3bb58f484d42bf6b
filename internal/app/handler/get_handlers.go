package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/shorturl/internal/app/service"
	"github.com/atinyakov/shorturl/internal/logger"
	"github.com/atinyakov/shorturl/internal/models"
)

const (
	msgWrongFormat = "Wrong format"
	msgNotFound    = "URL not found"
)

type GetHandler struct {
	service service.URLServiceIface
	logger  *zap.Logger
	timeout time.Duration
}

func NewGet(s service.URLServiceIface, l *zap.Logger, timeout time.Duration) *GetHandler {
	return &GetHandler{
		service: s,
		logger:  l,
		timeout: timeout,
	}
}

// ByShort handles GET /api/shorturl/{id} and redirects to the stored URL.
func (h *GetHandler) ByShort(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), h.timeout)
	defer cancel()
	log := logger.FromContext(ctx, h.logger)

	raw := chi.URLParam(req, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(res, http.StatusBadRequest, msgWrongFormat)
		return
	}

	r, err := h.service.Resolve(ctx, id)
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(res, http.StatusNotFound, msgNotFound)
		return
	case err != nil:
		log.Error("unable to resolve short id", zap.Int64("short_id", id), zap.Error(err))
		writeError(res, http.StatusInternalServerError, msgInternalError)
		return
	}

	res.Header().Set("Location", r.OriginalURL)
	res.WriteHeader(http.StatusFound)
}

// Hello answers GET /api/hello.
func (h *GetHandler) Hello(res http.ResponseWriter, _ *http.Request) {
	writeJSON(res, http.StatusOK, models.HelloResponse{Greeting: "hello API"})
}

func (h *GetHandler) PingDB(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), h.timeout)
	defer cancel()

	if err := h.service.PingContext(ctx); err != nil {
		logger.FromContext(ctx, h.logger).Error("storage ping failed", zap.Error(err))
		writeError(res, http.StatusInternalServerError, "storage unavailable")
		return
	}

	res.WriteHeader(http.StatusOK)
}
