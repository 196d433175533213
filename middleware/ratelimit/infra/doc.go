// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - Store: janela deslizante exata por chave, com janitor
//   - ChanPool: semáforo simples para limite de concorrência
//   - RedisStatsStore / MultiStatsStore: estatísticas das decisões
package infra
