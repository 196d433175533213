// Package validate confere forma e tamanho do payload antes de ele ser repassado.
//
// Só a presença de `contents` como array é verificada; o conteúdo dos
// elementos é opaco para o gateway.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// MaxPayloadSize é o limite, em caracteres, do documento re-serializado.
const MaxPayloadSize = 100_000

var ErrInvalidRequest = errors.New("invalid request")

// Causas internas; externamente todas viram ErrInvalidRequest.
var (
	ErrMalformedJSON    = fmt.Errorf("%w: malformed json", ErrInvalidRequest)
	ErrNotObject        = fmt.Errorf("%w: body is not a json object", ErrInvalidRequest)
	ErrMissingContents  = fmt.Errorf("%w: contents is required", ErrInvalidRequest)
	ErrContentsNotArray = fmt.Errorf("%w: contents must be an array", ErrInvalidRequest)
	ErrPayloadTooLarge  = fmt.Errorf("%w: payload too large", ErrInvalidRequest)
)

// Payload é um corpo já validado, pronto para ser enviado ao upstream.
type Payload struct {
	Document map[string]any
	// Encoded é o documento re-serializado; é o que segue para o upstream.
	Encoded []byte
}

// Size é o tamanho em caracteres de Encoded.
func (p Payload) Size() int { return utf8.RuneCount(p.Encoded) }

// Parse decodifica o corpo bruto e o valida.
func Parse(raw []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	// UseNumber preserva os números exatamente como chegaram.
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Payload{}, fmt.Errorf("%w: trailing data after json value", ErrMalformedJSON)
	}
	return Validate(v)
}

// Validate confere um valor já decodificado.
func Validate(v any) (Payload, error) {
	doc, ok := v.(map[string]any)
	if !ok || doc == nil {
		return Payload{}, ErrNotObject
	}

	contents, ok := doc["contents"]
	if !ok {
		return Payload{}, ErrMissingContents
	}
	if _, ok := contents.([]any); !ok {
		return Payload{}, ErrContentsNotArray
	}

	encoded, err := encode(doc)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	p := Payload{Document: doc, Encoded: encoded}
	if n := p.Size(); n > MaxPayloadSize {
		return Payload{}, fmt.Errorf("%w (%d > %d)", ErrPayloadTooLarge, n, MaxPayloadSize)
	}
	return p, nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return literalLineSeparators(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// literalLineSeparators desfaz os escapes \u2028 e \u2029 que o encoding/json
// sempre emite. JSON aceita os dois caracteres literais dentro de strings, e
// assim cada um conta como um caractere no tamanho.
func literalLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		// escapes são consumidos em pares para não confundir `\\u2028` com um separador
		if rest := b[i+1:]; len(rest) >= 5 && rest[0] == 'u' && string(rest[1:4]) == "202" && (rest[4] == '8' || rest[4] == '9') {
			out = utf8.AppendRune(out, rune(0x2020+int(rest[4]-'0')))
			i += 5
			continue
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}
