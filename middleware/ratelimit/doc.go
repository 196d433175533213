// Package ratelimit fornece o adapter HTTP (net/http) do rate limit por cliente.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire sem fila) sem net/http
//   - infra: implementações concretas (janela deslizante, semáforo, estatísticas)
//   - ratelimit (este pacote): middleware HTTP + extração de chave + Retry-After
//
// Fluxo no gateway:
//
//   1) Extrai a chave do cliente (lista ordenada de headers, senão "unknown")
//   2) Chama a camada application para obter a decisão
//   3) Se bloqueado, delega a resposta ao RejectFunc (429 + Retry-After)
//   4) Se permitido, chama o próximo handler com a chave no contexto
//
// Como o middleware fica por fora do handler do gateway, um cliente bloqueado
// recebe 429 antes de qualquer verificação de método ou payload.
package ratelimit
