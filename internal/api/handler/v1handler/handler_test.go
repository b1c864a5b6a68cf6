package v1handler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"pagediff/internal/api/handler/v1handler"
	"pagediff/internal/comparator"
	"pagediff/pkg/domain"
	"pagediff/pkg/logger"
	"pagediff/pkg/serrors"
)

func TestMain(m *testing.M) {
	// Initialize logger to avoid nil pointer deref during tests
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

func TestNewError_InternalOnPlainError(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})
	ctx := context.Background()

	res := h.NewError(ctx, errors.New("boom"))
	require.NotNil(t, res)
	require.Equal(t, 500, res.StatusCode)
	require.Equal(t, serrors.ErrInternal.Error(), res.Response.Code)
	require.Equal(t, "internal error", res.Response.Message)
}

func TestNewError_KindSentinelDirect_NavigationTimeout(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})
	ctx := context.Background()

	// Pass the Kind sentinel directly
	res := h.NewError(ctx, serrors.ErrNavigationTimeout)
	require.Equal(t, 504, res.StatusCode)
	require.Equal(t, serrors.ErrNavigationTimeout.Error(), res.Response.Code)
	require.Equal(t, "page did not load in time", res.Response.Message)
}

func TestNewError_SemanticWithMessage_InvalidInput(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})
	ctx := context.Background()

	err := serrors.With(serrors.ErrInvalidInput, "invalid payload: missing url")
	res := h.NewError(ctx, err)
	require.Equal(t, 400, res.StatusCode)
	require.Equal(t, serrors.ErrInvalidInput.Error(), res.Response.Code)
	require.Equal(t, "invalid payload: missing url", res.Response.Message)
	require.Empty(t, res.Response.Side)
}

func TestNewError_SemanticWrap_Unauthorized(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})
	ctx := context.Background()

	cause := errors.New("bad token")
	err := serrors.Wrap(serrors.ErrUnauthorized, cause, "unauthorized")
	res := h.NewError(ctx, err)
	require.Equal(t, 401, res.StatusCode)
	require.Equal(t, serrors.ErrUnauthorized.Error(), res.Response.Code)
	// Should include provided message, not the cause
	require.Equal(t, "unauthorized", res.Response.Message)
}

func TestNewError_InternalKind_GeneratesInternal(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})
	ctx := context.Background()

	res := h.NewError(ctx, serrors.KindOnly(serrors.ErrInternal))
	require.Equal(t, 500, res.StatusCode)
	require.Equal(t, serrors.ErrInternal.Error(), res.Response.Code)
	require.Equal(t, "internal error", res.Response.Message)
}

func TestNewError_SideError(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})
	ctx := context.Background()

	err := &comparator.SideError{
		Side: domain.SideB,
		Err:  serrors.Wrap(serrors.ErrNavigationFailure, errors.New("net::ERR_NAME_NOT_RESOLVED"), "could not navigate"),
	}
	res := h.NewError(ctx, err)
	require.Equal(t, 502, res.StatusCode)
	require.Equal(t, serrors.ErrNavigationFailure.Error(), res.Response.Code)
	require.Equal(t, "could not navigate", res.Response.Message)
	require.Equal(t, "B", res.Response.Side)
}

func TestNewError_StatusByKind(t *testing.T) {
	h := v1handler.New(v1handler.Deps{})
	ctx := context.Background()

	cases := map[serrors.Kind]int{
		serrors.ErrStabilizationFailure: 502,
		serrors.ErrCaptureFailure:       502,
		serrors.ErrEmptyImage:           502,
		serrors.ErrBufferMismatch:       502,
		serrors.ErrTimeout:              504,
		serrors.ErrUnavailable:          503,
		serrors.ErrMethodNotAllowed:     405,
		// never surfaced by the comparator, so it has no dedicated status
		serrors.ErrStabilizationWaitTimeout: 500,
	}
	for kind, status := range cases {
		require.Equal(t, status, h.NewError(ctx, serrors.KindOnly(kind)).StatusCode, kind.Error())
	}
}
