package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"HangarWatch/internal/ports"
)

// CachedEmbedder memoizes embeddings in a ports.Cache. Cache failures are logged and bypassed,
// the wrapped embedder stays the source of truth.
type CachedEmbedder struct {
	next   ports.Embedder
	cache  ports.Cache
	model  string
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps next. A nil cache disables caching.
func NewCachedEmbedder(next ports.Embedder, cache ports.Cache, model string, ttl time.Duration, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CachedEmbedder{next: next, cache: cache, model: model, ttl: ttl, logger: logger}
}

// Embed returns the cached vector for text or computes and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.cache == nil {
		return c.next.Embed(ctx, text)
	}

	key := CacheKey(c.model, text)
	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("embedding cache read failed", "error", err)
	} else if ok {
		if vec, err := decodeVector(raw); err == nil {
			c.logger.Debug("embedding cache hit", "key", key)
			return vec, nil
		}
		c.logger.Warn("embedding cache entry corrupt", "key", key)
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, encodeVector(vec), c.ttl); err != nil {
		c.logger.Warn("embedding cache write failed", "error", err)
	}
	return vec, nil
}

// CacheKey scopes the text hash by model so switching models never serves stale vectors.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%s", model, hex.EncodeToString(sum[:]))
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil, fmt.Errorf("invalid vector payload of %d bytes", len(raw))
	}
	v := make([]float32, len(raw)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return v, nil
}
