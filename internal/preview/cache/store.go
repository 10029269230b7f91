package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/preview/internal/common/redis"
	"github.com/edgecomet/preview/pkg/types"
)

// Hash fields of a cached preview
const (
	fieldMeta = "meta"
	fieldHTML = "html"
)

// Store keeps processed previews in Redis, one hash per page URL.
// Callers treat every error as a miss.
type Store struct {
	client      *redis.Client
	ttl         time.Duration
	compression string
	logger      *zap.Logger
}

func NewStore(client *redis.Client, ttl time.Duration, compression string, logger *zap.Logger) *Store {
	return &Store{
		client:      client,
		ttl:         ttl,
		compression: compression,
		logger:      logger,
	}
}

// Get returns the cached preview for pageURL. A miss is (nil, nil).
func (s *Store) Get(ctx context.Context, pageURL string) (*types.PreviewResult, error) {
	key := redis.PreviewKey(pageURL)

	fields, err := s.client.HGetAll(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	var meta types.CachedPreviewMetadata
	if err := json.Unmarshal([]byte(fields[fieldMeta]), &meta); err != nil {
		return nil, fmt.Errorf("invalid cache metadata for %s: %w", key, err)
	}

	html, err := Decompress([]byte(fields[fieldHTML]), meta.Compression)
	if err != nil {
		return nil, err
	}
	if meta.HTMLSize > 0 && len(html) != meta.HTMLSize {
		return nil, fmt.Errorf("%w: size mismatch for %s: got %d, want %d", ErrDecompression, key, len(html), meta.HTMLSize)
	}

	return &types.PreviewResult{
		URL:           meta.URL,
		BaseURL:       meta.BaseURL,
		Heading:       meta.Heading,
		HTML:          string(html),
		SourceContext: meta.SourceContext,
		CreatedAt:     meta.CreatedAt,
	}, nil
}

// Set stores res under the URL it was requested with
func (s *Store) Set(ctx context.Context, requestURL string, res *types.PreviewResult) error {
	body, algorithm, err := Compress([]byte(res.HTML), s.compression)
	if err != nil {
		return err
	}

	meta, err := json.Marshal(types.CachedPreviewMetadata{
		URL:           res.URL,
		BaseURL:       res.BaseURL,
		Heading:       res.Heading,
		SourceContext: res.SourceContext,
		Compression:   algorithm,
		HTMLSize:      len(res.HTML),
		CreatedAt:     res.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache metadata: %w", err)
	}

	key := redis.PreviewKey(requestURL)
	if err := s.client.HSetWithExpire(ctx, key, s.ttl, fieldMeta, meta, fieldHTML, body); err != nil {
		return err
	}

	s.logger.Debug("Preview cached",
		zap.String("key", key),
		zap.String("url", requestURL),
		zap.String("compression", algorithm),
		zap.Int("html_size", len(res.HTML)),
		zap.Int("stored_size", len(body)))

	return nil
}

// Invalidate drops the cached preview for pageURL
func (s *Store) Invalidate(ctx context.Context, pageURL string) error {
	return s.client.Del(ctx, redis.PreviewKey(pageURL))
}
