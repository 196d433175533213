// Package response traduz um outcome em (status, headers, corpo JSON).
//
// Todas as respostas são JSON. Erros viram {"error": "<mensagem localizada>"};
// o sucesso devolve o documento do upstream sem alterações.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/text/language"

	"genai-gateway/gateway/outcome"
)

// Response é o envelope devolvido ao cliente.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

type errorBody struct {
	Error string `json:"error"`
}

// Translator mapeia outcomes para respostas, no idioma negociado.
type Translator struct {
	// RetryAfter vai no header Retry-After das rejeições do rate limit.
	RetryAfter time.Duration

	tags    []language.Tag
	matcher language.Matcher
}

// NewTranslator usa locale como idioma padrão. Accept-Language pode escolher
// outro idioma do catálogo.
func NewTranslator(locale string, retryAfter time.Duration) (*Translator, error) {
	def, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	_, idx, conf := language.NewMatcher(allTags()).Match(def)
	if conf == language.No {
		return nil, fmt.Errorf("unsupported locale %q (supported: %v)", locale, Supported())
	}

	// o padrão fica em primeiro: é o que o matcher devolve quando nada casa.
	tags := []language.Tag{allTags()[idx]}
	for _, t := range allTags() {
		if t != tags[0] {
			tags = append(tags, t)
		}
	}
	return &Translator{
		RetryAfter: retryAfter,
		tags:       tags,
		matcher:    language.NewMatcher(tags),
	}, nil
}

func allTags() []language.Tag {
	return []language.Tag{language.BrazilianPortuguese, language.English, language.Spanish}
}

// Language escolhe o idioma a partir de um header Accept-Language.
func (t *Translator) Language(acceptLanguage string) language.Tag {
	if acceptLanguage == "" {
		return t.tags[0]
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return t.tags[0]
	}
	_, idx, conf := t.matcher.Match(prefs...)
	if conf == language.No {
		return t.tags[0]
	}
	return t.tags[idx]
}

// Message devolve a mensagem pública de um outcome.
func (t *Translator) Message(code outcome.Code, lang language.Tag) string {
	msgs, ok := catalog[lang]
	if !ok {
		msgs = catalog[t.tags[0]]
	}
	if m, ok := msgs[code]; ok {
		return m
	}
	return msgs[outcome.UnexpectedFailure]
}

// Success monta a resposta 200 com o documento do upstream.
func (t *Translator) Success(body []byte) Response {
	h := baseHeader()
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	h.Set("X-Content-Type-Options", "nosniff")
	return Response{Status: http.StatusOK, Header: h, Body: body}
}

// Error monta a resposta de um outcome de erro.
func (t *Translator) Error(code outcome.Code, lang language.Tag) Response {
	h := baseHeader()
	status := http.StatusInternalServerError

	switch code {
	case outcome.RateLimited:
		status = http.StatusTooManyRequests
		h.Set("Retry-After", strconv.Itoa(int(t.RetryAfter.Seconds())))
	case outcome.MethodNotAllowed:
		status = http.StatusMethodNotAllowed
		h.Set("Allow", http.MethodPost)
	case outcome.InvalidRequest:
		status = http.StatusBadRequest
	case outcome.UpstreamRateLimited:
		status = http.StatusTooManyRequests
	case outcome.Overloaded:
		status = http.StatusServiceUnavailable
	case outcome.MisconfiguredServer, outcome.UpstreamError, outcome.UnexpectedFailure:
		status = http.StatusInternalServerError
	default:
		code = outcome.UnexpectedFailure
	}

	body, _ := json.Marshal(errorBody{Error: t.Message(code, lang)})
	return Response{Status: status, Header: h, Body: body}
}

// Translate cobre todos os outcomes; body só é usado em UpstreamSuccess.
func (t *Translator) Translate(code outcome.Code, lang language.Tag, body []byte) Response {
	if code == outcome.UpstreamSuccess {
		return t.Success(body)
	}
	return t.Error(code, lang)
}

// Write envia a resposta. Headers já presentes em w são preservados.
func Write(w http.ResponseWriter, resp Response) {
	for k, vs := range resp.Header {
		w.Header()[k] = vs
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func baseHeader() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return h
}
