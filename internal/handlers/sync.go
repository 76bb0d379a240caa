package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"WeaveSync/internal/config"
	"WeaveSync/internal/service"
	"WeaveSync/internal/wbo"
	"WeaveSync/internal/weave"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SyncHandler - HTTP-обвязка протокола Weave: тело, разбор, движок, запись ответа.
type SyncHandler struct {
	SyncService *service.SyncService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

func NewSyncHandler(syncService *service.SyncService, logger *zap.SugaredLogger, cfg *config.Config) *SyncHandler {
	return &SyncHandler{SyncService: syncService, Logger: logger, Config: cfg}
}

// Serve обрабатывает любой метод под префиксом протокола.
func (h *SyncHandler) Serve(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxBodyBytes())
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Logger.Warnw("Weave: body too large", "limit", tooLarge.Limit)
			writeResponse(w, weave.ErrorResponse(weave.ErrTooLarge, wbo.Timestamp(time.Now())))
			return
		}
		h.Logger.Warnw("Weave: failed to read body", "error", err)
		writeResponse(w, weave.ErrorResponse(weave.NewError(weave.CodeInvalidProtocol, "unreadable body"), wbo.Timestamp(time.Now())))
		return
	}

	req, werr := weave.Parse(weave.Input{
		Method: r.Method,
		Path:   chi.URLParam(r, "*"),
		Header: r.Header,
		Query:  r.URL.Query(),
		Body:   body,
	})
	if werr != nil {
		h.Logger.Debugw("Weave: request rejected", "path", r.URL.Path, "code", werr.Code, "reason", werr.Message)
		writeResponse(w, weave.ErrorResponse(werr, wbo.Timestamp(time.Now())))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Config.RequestTimeout)
	defer cancel()
	writeResponse(w, h.SyncService.Handle(ctx, req))
}

func writeResponse(w http.ResponseWriter, resp *weave.Response) {
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
