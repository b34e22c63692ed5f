package middleware

import (
	"bytes"
	"net/http"
	apperrors "slotbook/pkg/errors"
	"sync"
	"time"
)

const IdempotencyHeader = "Idempotency-Key"

type IdempotencyStore interface {
	// Begin reserves key. It returns the cached response when one exists, or
	// ok=false when another request holds the key.
	Begin(key string) (cached *CachedResponse, ok bool)
	Complete(key string, response *CachedResponse)
	Release(key string)
	Stop()
}

type CachedResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	CreatedAt  time.Time
}

type InMemoryIdempotencyStore struct {
	mu       sync.Mutex
	store    map[string]*CachedResponse
	inFlight map[string]struct{}
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		store:    make(map[string]*CachedResponse),
		inFlight: make(map[string]struct{}),
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}

	go store.cleanup()

	return store
}

func (s *InMemoryIdempotencyStore) Begin(key string) (*CachedResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if response, exists := s.store[key]; exists {
		if time.Since(response.CreatedAt) <= s.ttl {
			return response, true
		}
		delete(s.store, key)
	}
	if _, busy := s.inFlight[key]; busy {
		return nil, false
	}
	s.inFlight[key] = struct{}{}
	return nil, true
}

func (s *InMemoryIdempotencyStore) Complete(key string, response *CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, key)
	response.CreatedAt = time.Now()
	s.store[key] = response
}

func (s *InMemoryIdempotencyStore) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

func (s *InMemoryIdempotencyStore) cleanup() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, response := range s.store {
				if time.Since(response.CreatedAt) > s.ttl {
					delete(s.store, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the first 2xx response for a repeated Idempotency-Key on
// the same method and path. Failed attempts release the key so clients can retry.
func Idempotency(store IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(IdempotencyHeader)
			if header == "" || r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Method + " " + r.URL.Path + " " + header
			cached, ok := store.Begin(key)
			if !ok {
				reject(w, apperrors.Conflict("a request with this Idempotency-Key is already in progress"))
				return
			}
			if cached != nil {
				replayCachedResponse(w, cached)
				return
			}

			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
			defer func() {
				if capture.statusCode >= 200 && capture.statusCode < 300 {
					store.Complete(key, &CachedResponse{
						StatusCode: capture.statusCode,
						Headers:    w.Header().Clone(),
						Body:       capture.body.Bytes(),
					})
					return
				}
				store.Release(key)
			}()

			next.ServeHTTP(capture, r)
		})
	}
}

func replayCachedResponse(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
