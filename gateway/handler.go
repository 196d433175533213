package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"genai-gateway/gateway/outcome"
	"genai-gateway/gateway/response"
	"genai-gateway/gateway/upstream"
	"genai-gateway/gateway/validate"
	"genai-gateway/middleware/ratelimit"
	"genai-gateway/middleware/ratelimit/application"
	"genai-gateway/telemetry/requestid"
)

// DefaultMaxBodyBytes limita a leitura do corpo bruto antes do parse.
const DefaultMaxBodyBytes = 1 << 20

// Forwarder é a chamada ao upstream.
type Forwarder interface {
	Forward(ctx context.Context, payload []byte, credential string) upstream.Result
}

// Observer recebe os outcomes para métricas. Pode ser nil.
type Observer interface {
	Outcome(code outcome.Code)
	UpstreamLatency(code outcome.Code, d time.Duration)
}

type Handler struct {
	Upstream   Forwarder
	Credential string
	Translator *response.Translator
	// Slots limita chamadas simultâneas ao upstream; Pool nil = sem limite.
	Slots        application.ConcurrencyService
	MaxBodyBytes int64
	Logger       *zap.Logger
	Observer     Observer
}

// exchange carrega o estado de uma requisição entre as etapas.
type exchange struct {
	w       http.ResponseWriter
	r       *http.Request
	log     *zap.Logger
	payload validate.Payload
	result  upstream.Result
}

// stage devolve (outcome, true) quando encerra a requisição.
type stage func(h *Handler, ex *exchange) (outcome.Code, bool)

var pipeline = []stage{
	(*Handler).checkMethod,
	(*Handler).parseBody,
	(*Handler).checkCredential,
	(*Handler).forward,
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ex := &exchange{
		w: w,
		r: r,
		log: logger.With(
			zap.String("request_id", requestid.FromContext(r.Context())),
			zap.String("identity", string(ratelimit.KeyFromContext(r.Context()))),
		),
	}

	code := outcome.UnexpectedFailure
	for _, st := range pipeline {
		var done bool
		if code, done = st(h, ex); done {
			break
		}
	}

	h.respond(ex, code)
}

func (h *Handler) respond(ex *exchange, code outcome.Code) {
	if h.Observer != nil {
		h.Observer.Outcome(code)
	}
	var lang language.Tag
	if code != outcome.UpstreamSuccess {
		lang = h.Translator.Language(ex.r.Header.Get("Accept-Language"))
	}
	response.Write(ex.w, h.Translator.Translate(code, lang, ex.result.Body))
}

func (h *Handler) checkMethod(ex *exchange) (outcome.Code, bool) {
	if ex.r.Method != http.MethodPost {
		return outcome.MethodNotAllowed, true
	}
	return 0, false
}

func (h *Handler) parseBody(ex *exchange) (outcome.Code, bool) {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	raw, err := io.ReadAll(http.MaxBytesReader(ex.w, ex.r.Body, limit))
	if err != nil {
		ex.log.Info("request body rejected", zap.Error(err))
		return outcome.InvalidRequest, true
	}

	p, err := validate.Parse(raw)
	if err != nil {
		ex.log.Info("invalid request", zap.Error(err))
		return outcome.InvalidRequest, true
	}
	ex.payload = p
	return 0, false
}

func (h *Handler) checkCredential(ex *exchange) (outcome.Code, bool) {
	if h.Credential == "" {
		ex.log.Error("upstream credential is not configured (GEMINI_API_KEY)")
		return outcome.MisconfiguredServer, true
	}
	return 0, false
}

func (h *Handler) forward(ex *exchange) (outcome.Code, bool) {
	release, ok := h.Slots.Acquire(ex.r.Context())
	if !ok {
		ex.log.Warn("no upstream slot available")
		return outcome.Overloaded, true
	}
	defer release()

	start := time.Now()
	ex.result = h.Upstream.Forward(ex.r.Context(), ex.payload.Encoded, h.Credential)
	elapsed := time.Since(start)
	if h.Observer != nil {
		h.Observer.UpstreamLatency(ex.result.Outcome, elapsed)
	}

	fields := []zap.Field{
		zap.String("outcome", ex.result.Outcome.String()),
		zap.Int("payload_chars", ex.payload.Size()),
		zap.Duration("duration", elapsed),
	}
	var serr *upstream.StatusError
	switch {
	case errors.As(ex.result.Err, &serr):
		ex.log.Warn("upstream returned error status",
			append(fields, zap.Int("upstream_status", serr.StatusCode), zap.Any("upstream_body", serr.Body))...)
	case ex.result.Err != nil:
		ex.log.Error("upstream call failed", append(fields, zap.Error(ex.result.Err))...)
	default:
		ex.log.Debug("upstream call succeeded", fields...)
	}
	return ex.result.Outcome, true
}
