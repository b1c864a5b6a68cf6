package v1handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"pagediff/internal/comparator"
	"pagediff/pkg/logger"
	"pagediff/pkg/serrors"
)

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	// Code is the semantic error kind, e.g. NAVIGATION_TIMEOUT.
	Code string
	// Message is a human-readable description safe to show to clients.
	Message string
	// Side is "A" or "B" for failures of one capture, empty otherwise.
	Side string
}

// ErrorStatusCode pairs an ErrorResponse with its HTTP status.
type ErrorStatusCode struct {
	StatusCode int
	Response   ErrorResponse
}

type kindInfo struct {
	status  int
	message string
}

var kinds = map[serrors.Kind]kindInfo{ //nolint: gochecknoglobals
	serrors.ErrInvalidInput:         {http.StatusBadRequest, "invalid input"},
	serrors.ErrMethodNotAllowed:     {http.StatusMethodNotAllowed, "method not allowed"},
	serrors.ErrUnauthorized:         {http.StatusUnauthorized, "unauthorized"},
	serrors.ErrNavigationTimeout:    {http.StatusGatewayTimeout, "page did not load in time"},
	serrors.ErrTimeout:              {http.StatusGatewayTimeout, "request timed out"},
	serrors.ErrNavigationFailure:    {http.StatusBadGateway, "page could not be loaded"},
	serrors.ErrStabilizationFailure: {http.StatusBadGateway, "page could not be prepared for capture"},
	serrors.ErrCaptureFailure:       {http.StatusBadGateway, "screenshot failed"},
	serrors.ErrEmptyImage:           {http.StatusBadGateway, "screenshot is empty"},
	serrors.ErrBufferMismatch:       {http.StatusBadGateway, "screenshot is malformed"},
	serrors.ErrUnavailable:          {http.StatusServiceUnavailable, "browser unavailable"},
}

// NewError converts err into an ErrorStatusCode. The status and default
// message follow the semantic kind; a message attached with serrors.With or
// serrors.Wrap replaces the default, while wrapped causes are only logged.
// Errors without a kind are reported as internal errors.
func (h Handler) NewError(ctx context.Context, err error) *ErrorStatusCode {
	kind := serrors.KindOf(err)
	info, ok := kinds[kind]
	if !ok {
		kind = serrors.ErrInternal
		info = kindInfo{http.StatusInternalServerError, "internal error"}
	}

	res := &ErrorStatusCode{
		StatusCode: info.status,
		Response:   ErrorResponse{Code: kind.Error(), Message: info.message},
	}

	var sideErr *comparator.SideError
	if errors.As(err, &sideErr) {
		res.Response.Side = string(sideErr.Side)
	}

	var semErr *serrors.Error
	if kind != serrors.ErrInternal && errors.As(err, &semErr) && semErr.Message() != "" {
		res.Response.Message = semErr.Message()
	}

	if info.status >= http.StatusInternalServerError {
		logger.Error(ctx, "request failed", zap.Error(err), zap.String("code", res.Response.Code))
	} else {
		logger.Info(ctx, "request rejected", zap.Error(err), zap.String("code", res.Response.Code))
	}

	return res
}

// writeError writes res as {"ok":false,"code","error","side"}.
func writeError(ctx context.Context, w http.ResponseWriter, res *ErrorStatusCode) {
	writeJSON(ctx, w, res.StatusCode, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("ok", func(e *jx.Encoder) { e.Bool(false) })
			e.Field("code", func(e *jx.Encoder) { e.Str(res.Response.Code) })
			e.Field("error", func(e *jx.Encoder) { e.Str(res.Response.Message) })
			if res.Response.Side != "" {
				e.Field("side", func(e *jx.Encoder) { e.Str(res.Response.Side) })
			}
		})
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		logger.Warn(ctx, "could not write response", zap.Error(err))
	}
}
