// upstream-stub imita o endpoint generateContent para testes manuais do gateway.
//
//	LISTEN_ADDR=:8081 STUB_STATUS=200 go run ./cmd/upstream-stub
//	UPSTREAM_BASE_URL=http://localhost:8081/v1beta GEMINI_API_KEY=x go run ./cmd/gateway
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"genai-gateway/telemetry/logging"
)

type stubConfig struct {
	ListenAddr string        `env:"LISTEN_ADDR" envDefault:":8081"`
	Status     int           `env:"STUB_STATUS" envDefault:"200"`
	Delay      time.Duration `env:"STUB_DELAY" envDefault:"0s"`
	LogLevel   string        `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	cfg, err := env.ParseAs[stubConfig]()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Status < 100 || cfg.Status > 599 {
		fmt.Fprintf(os.Stderr, "config error: STUB_STATUS fora do intervalo: %d\n", cfg.Status)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	r := chi.NewRouter()
	r.Post("/v1beta/models/{call}", generateContent(cfg, logger))

	logger.Info("upstream stub listening", zap.String("addr", cfg.ListenAddr), zap.Int("status", cfg.Status))
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("stub stopped", zap.Error(err))
	}
}

func generateContent(cfg stubConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		call := chi.URLParam(r, "call")
		model, ok := strings.CutSuffix(call, ":generateContent")
		if !ok {
			http.NotFound(w, r)
			return
		}

		var body struct {
			Contents []json.RawMessage `json:"contents"`
		}
		decodeErr := json.NewDecoder(r.Body).Decode(&body)

		// a chave nunca vai para o log, só se ela veio
		logger.Info("generateContent",
			zap.String("model", model),
			zap.Bool("has_key", r.URL.Query().Get("key") != ""),
			zap.Int("contents", len(body.Contents)),
			zap.NamedError("decode_error", decodeErr))

		if cfg.Delay > 0 {
			select {
			case <-time.After(cfg.Delay):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if cfg.Status < 200 || cfg.Status > 299 {
			w.WriteHeader(cfg.Status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{
					"code":    cfg.Status,
					"message": http.StatusText(cfg.Status),
					"status":  "STUB_FORCED",
				},
			})
			return
		}

		w.WriteHeader(cfg.Status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"role":  "model",
						"parts": []any{map[string]any{"text": fmt.Sprintf("stub: %d contents recebidos", len(body.Contents))}},
					},
					"finishReason": "STOP",
				},
			},
			"modelVersion": model,
		})
	}
}
