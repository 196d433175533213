package application

import (
	"time"

	"genai-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store      domain.WindowStore
	RetryAfter time.Duration
	// Clock permite injetar o tempo em testes. Se nil, usa time.Now.
	Clock func() time.Time
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
		if wi, ok := s.Store.(domain.WindowInfo); ok && wi.Window() > 0 {
			s.RetryAfter = wi.Window()
		}
	}

	now := time.Now()
	if s.Clock != nil {
		now = s.Clock()
	}

	if s.Store.Check(key, now) {
		return domain.Decision{Allowed: true}
	}
	return domain.Decision{Allowed: false, RetryAfter: s.RetryAfter}
}
