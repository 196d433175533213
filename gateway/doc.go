// Package gateway implementa o endpoint único: uma sequência fixa de etapas
// que termina em um outcome.
//
// A ordem é: rate limit (middleware externo) → método → parse/validação →
// credencial → upstream. A primeira etapa que falha encerra a requisição.
package gateway
