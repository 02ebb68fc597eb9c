package birthday

import "time"

// ServiceOption mutates the Service during construction.
type ServiceOption func(*Service)

// WithCacheTTL overrides how long a cache entry stays fresh.
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCacheMaxSize overrides the cache entry bound.
func WithCacheMaxSize(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.maxSize = size
		}
	}
}

// WithClock injects the time source; tests use it to pin "now".
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver attaches an operation observer to the Service.
func WithObserver(obs Observer) ServiceOption {
	return func(s *Service) {
		s.observer = obs
	}
}
