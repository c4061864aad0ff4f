package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"review_dashboard/internal/domain"
)

// Read results are cached under keys that embed a generation number. Writes
// move the generation forward, so stale entries are never read again and
// simply expire.
const generationKey = "reviews:gen"

func generation(ctx context.Context, c domain.Cache) int64 {
	var g int64
	if ok, err := c.Get(ctx, generationKey, &g); err != nil || !ok {
		return 0
	}
	return g
}

// bumpGeneration runs after the write has landed, so it must not be dropped
// when the caller's context is cancelled mid-request.
func bumpGeneration(ctx context.Context, c domain.Cache, now time.Time) {
	if c == nil {
		return
	}
	if err := c.Set(context.WithoutCancel(ctx), generationKey, now.UnixNano(), 0); err != nil {
		log.Warn().Err(err).Msg("cache invalidation failed")
	}
}

func cacheKey(ctx context.Context, c domain.Cache, kind string, params any) string {
	b, _ := json.Marshal(params)
	sum := sha1.Sum(b)
	return fmt.Sprintf("reviews:%s:%d:%s", kind, generation(ctx, c), hex.EncodeToString(sum[:8]))
}
