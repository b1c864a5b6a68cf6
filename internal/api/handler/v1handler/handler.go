package v1handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"pagediff/internal/comparator"
	"pagediff/internal/config"
	"pagediff/pkg/domain"
	"pagediff/pkg/imagecodec"
	"pagediff/pkg/logger"
	"pagediff/pkg/serrors"
)

// DefaultMaxBodyBytes limits request bodies when Deps does not set a limit.
const DefaultMaxBodyBytes = 1 << 20

// Defaults are applied to request fields that are omitted.
type Defaults struct {
	Viewport domain.Viewport
	Timeout  time.Duration
	Diff     domain.DiffOptions
}

// NewDefaults constructs Defaults from the provided application config.
func NewDefaults(cfg *config.Config) Defaults {
	diff := domain.DefaultDiffOptions()
	diff.Threshold = cfg.Compare.Threshold

	return Defaults{
		Viewport: domain.Viewport{
			Width:  cfg.Compare.ViewportWidth,
			Height: cfg.Compare.ViewportHeight,
			Scale:  cfg.Compare.DeviceScaleFactor,
		},
		Timeout: cfg.Compare.Timeout,
		Diff:    diff,
	}
}

// Deps groups the collaborators of Handler.
type Deps struct {
	Comparator comparator.Comparator
	Codec      imagecodec.Codec
	Defaults   Defaults
	// MaxBodyBytes limits the request body size.
	MaxBodyBytes int64
}

// Handler serves the comparison endpoints.
type Handler struct {
	deps Deps
}

// New creates a Handler. Zero-valued defaults are replaced by the built-in ones.
func New(deps Deps) *Handler {
	if deps.Codec == nil {
		deps.Codec = imagecodec.PNG{}
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if deps.Defaults.Viewport == (domain.Viewport{}) {
		deps.Defaults.Viewport = domain.DefaultViewport()
	}
	if deps.Defaults.Timeout <= 0 {
		deps.Defaults.Timeout = 45 * time.Second
	}
	if deps.Defaults.Diff == (domain.DiffOptions{}) {
		deps.Defaults.Diff = domain.DefaultDiffOptions()
	}

	return &Handler{deps: deps}
}

// CreateComparison handles POST /v1/comparisons. Errors are reported with
// their semantic code, the failing side and a status derived from the kind.
func (h Handler) CreateComparison(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	outcome, err := h.compare(w, r)
	if err == nil {
		err = h.writeOutcome(ctx, w, outcome, true)
	}
	if err != nil {
		writeError(ctx, w, h.NewError(ctx, err))
	}
}

// Screenshot handles POST /api/screenshot, the endpoint browsers call
// directly: 405 for other methods, {"error"} with 400 for bad input and
// {"ok":false,"error"} with 500 for any other failure.
func (h Handler) Screenshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)

		return
	}

	outcome, err := h.compare(w, r)
	if err == nil {
		err = h.writeOutcome(ctx, w, outcome, false)
	}
	if err != nil {
		writeCompatError(ctx, w, h.NewError(ctx, err))
	}
}

// writeCompatError writes {"error"} for 400 and {"ok":false,"error"} otherwise.
func writeCompatError(ctx context.Context, w http.ResponseWriter, res *ErrorStatusCode) {
	status := compatStatus(res.StatusCode)
	writeJSON(ctx, w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			if status != http.StatusBadRequest {
				e.Field("ok", func(e *jx.Encoder) { e.Bool(false) })
			}
			e.Field("error", func(e *jx.Encoder) { e.Str(res.Response.Message) })
		})
	})
}

// compare reads the request and runs the comparison.
func (h Handler) compare(w http.ResponseWriter, r *http.Request) (*domain.ComparisonOutcome, error) {
	if r.Method != http.MethodPost {
		return nil, serrors.With(serrors.ErrMethodNotAllowed, "method %s not allowed", r.Method)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.deps.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, serrors.With(serrors.ErrInvalidInput, "request body exceeds %d bytes", tooLarge.Limit)
		}

		return nil, serrors.Wrap(serrors.ErrInvalidInput, err, "could not read request body")
	}

	req, err := DecodeCompareRequest(body)
	if err != nil {
		logger.Debug(r.Context(), "invalid comparison request", zap.Error(err))

		return nil, serrors.Wrap(serrors.ErrInvalidInput, err, "Invalid JSON")
	}

	if !validURL(req.URLA) || !validURL(req.URLB) {
		return nil, serrors.With(serrors.ErrInvalidInput, "urlA/urlB must be valid http(s) URLs")
	}

	a, b, opts := req.ToDomain(h.deps.Defaults)

	return h.deps.Comparator.Compare(r.Context(), a, b, opts) //nolint: wrapcheck
}

func validURL(raw string) bool {
	_, err := comparator.NormalizeURL(raw)

	return err == nil
}

// writeOutcome encodes outcome and writes it with 200. Nothing is written
// when encoding fails.
func (h Handler) writeOutcome(ctx context.Context, w http.ResponseWriter,
	outcome *domain.ComparisonOutcome, extended bool) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	if err := EncodeOutcome(e, h.deps.Codec, outcome, extended); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(e.Bytes()); err != nil {
		logger.Warn(ctx, "could not write response", zap.Error(err))
	}

	return nil
}

func compatStatus(status int) int {
	if status == http.StatusBadRequest || status == http.StatusMethodNotAllowed {
		return status
	}

	return http.StatusInternalServerError
}
