package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"genai-gateway/gateway/outcome"
	"genai-gateway/gateway/response"
	"genai-gateway/telemetry/requestid"
)

// Recovery é a fronteira externa: qualquer panic vira a resposta genérica 500.
func Recovery(tr *response.Translator, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					zap.String("request_id", requestid.FromContext(r.Context())),
					zap.String("panic", fmt.Sprint(rec)),
					zap.Stack("stack"))

				lang := tr.Language(r.Header.Get("Accept-Language"))
				response.Write(w, tr.Error(outcome.UnexpectedFailure, lang))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
