package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

type Key string

// UnknownKey é a chave usada quando nenhum header de identificação está presente.
const UnknownKey Key = "unknown"

// WindowStore decide, por chave, se uma requisição pode ser admitida em `now`.
//
// A implementação deve ser exata (sem falso positivo/negativo) e registrar
// apenas as requisições admitidas. Verificar e registrar é uma operação atômica.
type WindowStore interface {
	Check(key Key, now time.Time) bool
}

// WindowInfo expõe os parâmetros da janela (usado em headers e logs).
type WindowInfo interface {
	Limit() int
	Window() time.Duration
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
