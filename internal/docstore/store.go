// Package docstore keeps document vectors in Redis so that several
// evaluation runs can share one loaded corpus.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/resilience"
)

// KV is the subset of pkg/redis.Client used by the store.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	SetMany(ctx context.Context, values map[string][]byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Store reads and writes JSON-encoded vectors under prefix+docID.
type Store struct {
	kv      KV
	cfg     config.RedisConfig
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

// New creates a store on kv. m may be nil.
func New(kv KV, cfg config.RedisConfig, m *metrics.Metrics) *Store {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "doc:"
	}
	notFound := func(err error) bool { return errors.Is(err, apperrors.ErrDocumentNotFound) }
	s := &Store{
		kv:  kv,
		cfg: cfg,
		retry: resilience.RetryConfig{
			MaxAttempts: cfg.MaxAttempts,
			Retryable: func(err error) bool {
				return !notFound(err) && !errors.Is(err, resilience.ErrCircuitOpen) &&
					!errors.Is(err, context.Canceled)
			},
		},
		logger: slog.Default().With("component", "docstore"),
	}
	breakerCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.BreakerThreshold,
		ResetTimeout:     cfg.BreakerResetTimeout,
		IsFailure:        func(err error) bool { return !notFound(err) },
	}
	if m != nil {
		s.retry.OnRetry = func(int, error) { m.RetriesTotal.WithLabelValues("docstore_get").Inc() }
		breakerCfg.OnStateChange = func(_, to resilience.State) {
			m.BreakerState.WithLabelValues("docstore").Set(float64(to))
		}
	}
	s.breaker = resilience.NewCircuitBreaker("docstore", breakerCfg)
	return s
}

func (s *Store) key(docID string) string {
	return s.cfg.KeyPrefix + docID
}

// Vector implements evaluation.DocumentSource. Missing documents yield
// ErrDocumentNotFound and are not retried.
func (s *Store) Vector(ctx context.Context, docID string) (termvec.Vector, error) {
	var vec termvec.Vector
	err := resilience.Retry(ctx, "docstore.get", s.retry, func() error {
		return s.breaker.Execute(func() error {
			readCtx := ctx
			if s.cfg.ReadTimeout > 0 {
				var cancel context.CancelFunc
				readCtx, cancel = context.WithTimeout(ctx, s.cfg.ReadTimeout)
				defer cancel()
			}
			data, err := s.kv.Get(readCtx, s.key(docID))
			if err != nil {
				if pkgredis.IsNilError(err) {
					return apperrors.Newf(apperrors.ErrDocumentNotFound, "document %q", docID)
				}
				return fmt.Errorf("reading document %s: %w", docID, err)
			}
			if err := json.Unmarshal([]byte(data), &vec); err != nil {
				return apperrors.Newf(apperrors.ErrInvalidInput, "decoding document %s: %v", docID, err)
			}
			return nil
		})
	})
	if err != nil {
		return termvec.Vector{}, err
	}
	return vec, nil
}

// Put stores one document vector.
func (s *Store) Put(ctx context.Context, docID string, vec termvec.Vector) error {
	return s.PutAll(ctx, map[string]termvec.Vector{docID: vec})
}

// PutAll stores vectors in one pipelined write.
func (s *Store) PutAll(ctx context.Context, docs map[string]termvec.Vector) error {
	values := make(map[string][]byte, len(docs))
	for id, vec := range docs {
		data, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("encoding document %s: %w", id, err)
		}
		values[s.key(id)] = data
	}
	if err := s.kv.SetMany(ctx, values, s.cfg.TTL); err != nil {
		return fmt.Errorf("storing %d documents: %w", len(docs), err)
	}
	s.logger.Debug("documents stored", "count", len(docs))
	return nil
}

// Clear deletes every stored document.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	deleted, err := s.kv.FlushByPattern(ctx, s.cfg.KeyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("clearing documents: %w", err)
	}
	s.logger.Info("documents cleared", "keys_deleted", deleted)
	return deleted, nil
}
