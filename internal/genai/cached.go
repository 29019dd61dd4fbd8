package genai

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"bank-assistant/internal/common/cache"
	"bank-assistant/internal/common/metrics"
)

// CachedEmbedder puts an in-process LRU (L1) and an optional redis layer (L2) in front of an Embedder.
// Vectors are copied in and out of L1 so callers never share a cached slice.
type CachedEmbedder struct {
	next   Embedder
	model  string
	l1     *cache.LRU[[]float32]
	redis  *redis.Client
	ttl    time.Duration
	logger Logger
}

// NewCachedEmbedder wraps next; rdb may be nil.
func NewCachedEmbedder(next Embedder, model string, size int, ttl time.Duration, rdb *redis.Client, log Logger) *CachedEmbedder {
	return &CachedEmbedder{
		next:   next,
		model:  model,
		l1:     cache.NewLRU[[]float32](size, ttl),
		redis:  rdb,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "embedding-cache"}),
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	if vec, ok := c.l1.Get(key); ok {
		metrics.EmbeddingCache.WithLabelValues("l1", "hit").Inc()
		return slices.Clone(vec), nil
	}
	metrics.EmbeddingCache.WithLabelValues("l1", "miss").Inc()

	if c.redis != nil {
		raw, err := c.redis.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if vec := bytesToFloat32s(raw); len(vec) > 0 {
				metrics.EmbeddingCache.WithLabelValues("l2", "hit").Inc()
				c.l1.Set(key, slices.Clone(vec), 0)
				return vec, nil
			}
		case errors.Is(err, redis.Nil):
		default:
			c.logger.Warn("embedding cache read failed", map[string]interface{}{"error": err.Error()})
		}
		metrics.EmbeddingCache.WithLabelValues("l2", "miss").Inc()
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.l1.Set(key, slices.Clone(vec), 0)
	if c.redis != nil {
		if err := c.redis.Set(ctx, key, float32sToBytes(vec), c.ttl).Err(); err != nil {
			c.logger.Warn("embedding cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return vec, nil
}

// Purge drops the L1 layer; redis entries expire on their own.
func (c *CachedEmbedder) Purge() {
	c.l1.Purge()
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}

func float32sToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32s(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
