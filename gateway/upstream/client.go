// Package upstream faz a única chamada de saída para a API generativa
// e classifica o resultado.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"genai-gateway/gateway/outcome"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseBytes limita a leitura da resposta do upstream.
	DefaultMaxResponseBytes int64 = 32 << 20
)

var ErrResponseTooLarge = errors.New("upstream response too large")

// StatusError é devolvido quando o upstream responde com status fora de 2xx.
//
// Body é o corpo de erro decodificado (objeto vazio se não for JSON).
// Serve apenas para diagnóstico no servidor; nunca é repassado ao cliente.
type StatusError struct {
	StatusCode int
	Body       any
}

func (e *StatusError) Error() string {
	if e == nil {
		return "upstream error"
	}
	return fmt.Sprintf("upstream request failed: status %d", e.StatusCode)
}

// Result é a classificação de uma chamada.
type Result struct {
	Outcome outcome.Code
	// Body é o documento de sucesso, compactado mas sem outras alterações.
	Body json.RawMessage
	Err  error
}

// Client chama `<BaseURL>/models/<Model>:generateContent?key=<credential>`.
type Client struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration

	// MaxResponseBytes <= 0 usa DefaultMaxResponseBytes.
	MaxResponseBytes int64
}

// NewClient aplica os padrões a base e modelo vazios.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	m := strings.TrimSpace(model)
	if m == "" {
		m = DefaultModel
	}
	return &Client{
		BaseURL: base,
		Model:   m,
		Timeout: timeout,
	}
}

// Endpoint monta a URL de destino. É o único lugar onde a credencial é usada.
func (c *Client) Endpoint(credential string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/models/" + url.PathEscape(c.Model) +
		":generateContent?key=" + url.QueryEscape(credential)
}

// Forward envia payload (JSON já serializado) e classifica a resposta.
// Exatamente uma chamada, sem retries.
func (c *Client) Forward(ctx context.Context, payload []byte, credential string) Result {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(credential), bytes.NewReader(payload))
	if err != nil {
		return failure(fmt.Errorf("build request: %w", redact(err)))
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return failure(fmt.Errorf("request failed: %w", redact(err)))
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	limit := c.MaxResponseBytes
	if limit <= 0 {
		limit = DefaultMaxResponseBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return failure(fmt.Errorf("read response: %w", redact(err)))
	}
	if int64(len(body)) > limit {
		return failure(fmt.Errorf("%w (status %d)", ErrResponseTooLarge, resp.StatusCode))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var parsed any
		if err := json.Unmarshal(body, &parsed); err != nil {
			parsed = map[string]any{}
		}
		serr := &StatusError{StatusCode: resp.StatusCode, Body: parsed}
		if resp.StatusCode == http.StatusTooManyRequests {
			return Result{Outcome: outcome.UpstreamRateLimited, Err: serr}
		}
		return Result{Outcome: outcome.UpstreamError, Err: serr}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return failure(fmt.Errorf("decode response: %w", err))
	}
	return Result{Outcome: outcome.UpstreamSuccess, Body: compact.Bytes()}
}

func failure(err error) Result {
	return Result{Outcome: outcome.UnexpectedFailure, Err: err}
}

// redact remove a credencial das URLs que o net/http embute nos erros.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = RedactURL(uerr.URL)
	}
	return err
}

// RedactURL troca o valor do parâmetro `key` por "REDACTED".
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid url]"
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
