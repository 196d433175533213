// Package requestid guarda o ID da requisição no contexto. Não depende de
// nenhum outro pacote do módulo, então tanto o servidor quanto o gateway podem usá-lo.
package requestid

import "context"

const Header = "X-Request-ID"

type contextKey struct{}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext retorna o ID guardado por WithID, ou "".
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}
