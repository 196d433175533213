// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// Janela deslizante (WindowStore), decisão (Decision), estatísticas (StatsStore)
// e vagas de concorrência (SlotPool) ficam aqui.
package domain
