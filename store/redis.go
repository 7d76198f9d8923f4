package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/rag"
)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces all keys, default "agenticrag:".
	Prefix string
}

// redisEntry is the stored form of one indexed item.
type redisEntry struct {
	Item      rag.EvidenceItem `json:"item"`
	Embedding []float32        `json:"embedding"`
}

// RedisStore keeps each namespace in its own Redis hash, one field per
// item ID, and ranks by cosine similarity at query time. Suited to
// corpora small enough to scan per query; larger deployments should front
// a dedicated vector database with the same interface.
type RedisStore struct {
	client   *redis.Client
	embedder Embedder
	prefix   string
}

// NewRedisStore creates a Redis-backed evidence store.
func NewRedisStore(opts RedisOptions, embedder Embedder) *RedisStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "agenticrag:"
	}

	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		embedder: embedder,
		prefix:   prefix,
	}
}

func (s *RedisStore) namespaceKey(ns rag.Namespace) string {
	return fmt.Sprintf("%sevidence:%s", s.prefix, ns)
}

// Add embeds and stores items in the given namespace. An existing item
// with the same ID is overwritten.
func (s *RedisStore) Add(ctx context.Context, ns rag.Namespace, items []rag.EvidenceItem) error {
	if err := validateNamespace(ns); err != nil {
		return err
	}

	key := s.namespaceKey(ns)
	pipe := s.client.Pipeline()
	for _, item := range items {
		if item.Kind == "" {
			item.Kind = kindFor(ns)
		}
		embedding, err := s.embedder.Embed(ctx, embeddingText(item))
		if err != nil {
			return fmt.Errorf("failed to embed item %s: %w", item.ID, err)
		}
		data, err := json.Marshal(redisEntry{Item: item, Embedding: embedding})
		if err != nil {
			return fmt.Errorf("failed to marshal item %s: %w", item.ID, err)
		}
		pipe.HSet(ctx, key, item.ID, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store items in redis: %w", err)
	}
	return nil
}

// Retrieve implements rag.EvidenceStore. Invalid arguments, an
// unreachable server and malformed entries surface as *rag.RetrievalError.
func (s *RedisStore) Retrieve(ctx context.Context, query string, topK int, ns rag.Namespace) ([]rag.EvidenceItem, error) {
	if topK < 1 {
		return nil, &rag.RetrievalError{Namespace: ns, Err: fmt.Errorf("top-k must be positive, got %d", topK)}
	}
	if err := validateNamespace(ns); err != nil {
		return nil, &rag.RetrievalError{Namespace: ns, Err: err}
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &rag.RetrievalError{Namespace: ns, Err: fmt.Errorf("failed to embed query: %w", err)}
	}

	fields, err := s.client.HGetAll(ctx, s.namespaceKey(ns)).Result()
	if err != nil {
		return nil, &rag.RetrievalError{Namespace: ns, Err: fmt.Errorf("failed to read namespace from redis: %w", err)}
	}

	scored := make([]rag.EvidenceItem, 0, len(fields))
	for id, raw := range fields {
		var entry redisEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, &rag.RetrievalError{Namespace: ns, Err: fmt.Errorf("malformed entry %s: %w", id, err)}
		}
		item := entry.Item
		item.Score = cosineSimilarity(queryVec, entry.Embedding)
		scored = append(scored, item)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// Len reports the number of stored items in a namespace.
func (s *RedisStore) Len(ctx context.Context, ns rag.Namespace) (int, error) {
	n, err := s.client.HLen(ctx, s.namespaceKey(ns)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count namespace %s: %w", ns, err)
	}
	return int(n), nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
