package infra

import (
	"context"
	"sync"
	"time"

	"genai-gateway/middleware/ratelimit/domain"
)

const (
	DefaultLimit        = 30
	DefaultWindow       = 60 * time.Second
	DefaultCleanupEvery = 2 * time.Minute
)

// Store é uma janela deslizante exata por chave: guarda o instante de cada
// requisição admitida e descarta os que saíram da janela a cada Check.
//
// Chaves cujo histórico ficou vazio são removidas pelo janitor.
type Store struct {
	mu           sync.Mutex
	entries      map[string][]time.Time
	limit        int
	window       time.Duration
	cleanupEvery time.Duration
	onSweep      func(tracked int)
}

type StoreOption func(*Store)

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *Store) { s.cleanupEvery = d }
}

// WithSweepHook recebe a quantidade de chaves restantes após cada limpeza.
func WithSweepHook(fn func(tracked int)) StoreOption {
	return func(s *Store) { s.onSweep = fn }
}

func NewStore(limit int, window time.Duration, opts ...StoreOption) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	s := &Store{
		entries:      make(map[string][]time.Time),
		limit:        limit,
		window:       window,
		cleanupEvery: DefaultCleanupEvery,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Limit() int                  { return s.limit }
func (s *Store) Window() time.Duration       { return s.window }
func (s *Store) CleanupEvery() time.Duration { return s.cleanupEvery }

// Check implementa domain.WindowStore.
//
// Requisições rejeitadas não são registradas e não alteram o histórico.
func (s *Store) Check(key domain.Key, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := s.prune(s.entries[string(key)], now)
	if len(recent) >= s.limit {
		return false
	}
	s.entries[string(key)] = append(recent, now)
	return true
}

// Len retorna quantas chaves estão sendo rastreadas (inclusive com histórico vazio).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup poda todas as chaves relativo a `now` e remove as que ficaram vazias.
func (s *Store) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ts := range s.entries {
		recent := s.prune(ts, now)
		if len(recent) == 0 {
			delete(s.entries, k)
			continue
		}
		s.entries[k] = recent
	}
	return len(s.entries)
}

// prune devolve um slice novo; o original nunca é modificado.
func (s *Store) prune(ts []time.Time, now time.Time) []time.Time {
	out := make([]time.Time, 0, len(ts)+1)
	for _, t := range ts {
		if now.Sub(t) < s.window {
			out = append(out, t)
		}
	}
	return out
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *Store) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				tracked := s.Cleanup(now)
				if s.onSweep != nil {
					s.onSweep(tracked)
				}
			}
		}
	}()
}
