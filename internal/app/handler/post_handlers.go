package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/shorturl/internal/app/service"
	"github.com/atinyakov/shorturl/internal/logger"
	"github.com/atinyakov/shorturl/internal/models"
)

const (
	msgInvalidURL    = "invalid url"
	msgInternalError = "internal error"
)

type PostHandler struct {
	service service.URLServiceIface
	logger  *zap.Logger
	timeout time.Duration
}

func NewPost(s service.URLServiceIface, l *zap.Logger, timeout time.Duration) *PostHandler {
	return &PostHandler{
		service: s,
		logger:  l,
		timeout: timeout,
	}
}

// Shorten handles POST /api/shorturl. It answers 201 for a new record and
// 200 when the URL was already registered.
func (h *PostHandler) Shorten(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), h.timeout)
	defer cancel()
	log := logger.FromContext(ctx, h.logger)

	rawURL, err := readURLField(res, req)
	if err != nil {
		var mr *malformedRequest
		if errors.As(err, &mr) {
			writeError(res, mr.status, mr.msg)
			return
		}
		log.Error("read request body", zap.Error(err))
		writeError(res, http.StatusInternalServerError, msgInternalError)
		return
	}

	if rawURL == "" {
		writeError(res, http.StatusBadRequest, msgInvalidURL)
		return
	}

	r, created, err := h.service.Shorten(ctx, rawURL)
	switch {
	case errors.Is(err, service.ErrMalformedURL), errors.Is(err, service.ErrUnresolvableHost):
		log.Info("url rejected", zap.String("url", rawURL), zap.Error(err))
		writeError(res, http.StatusBadRequest, msgInvalidURL)
		return
	case err != nil:
		log.Error("unable to register url", zap.Error(err))
		writeError(res, http.StatusInternalServerError, msgInternalError)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	writeJSON(res, status, models.Response{OriginalURL: r.OriginalURL, ShortURL: r.ShortID})
}
