package relayer

import (
	"context"
	"fmt"

	cfgtypes "github.com/kysee/zk-knights/provers/types"
	"github.com/rs/zerolog"
)

// KeyCache serves proving key bytes, going to the network only on a cache miss.
// Entries are never evicted here; bumping the cache namespace is the only invalidation path.
type KeyCache struct {
	cache   cfgtypes.ByteCache
	fetcher cfgtypes.Fetcher
	metrics *Metrics
	log     zerolog.Logger
}

func NewKeyCache(cache cfgtypes.ByteCache, fetcher cfgtypes.Fetcher, metrics *Metrics, log zerolog.Logger) *KeyCache {
	return &KeyCache{
		cache:   cache,
		fetcher: fetcher,
		metrics: metrics,
		log:     log.With().Str("component", "keycache").Logger(),
	}
}

// ProvingKeyBytes returns the proving key stored at url.
func (k *KeyCache) ProvingKeyBytes(ctx context.Context, url string) ([]byte, error) {
	cached, ok, err := k.cache.Get(url)
	if err != nil {
		k.metrics.keyLookup("error")
		return nil, fmt.Errorf("failed to read key cache: %w", err)
	}
	if ok {
		k.metrics.keyLookup("hit")
		k.log.Debug().Str("url", url).Int("bytes", len(cached)).Msg("proving key cache hit")
		return cached, nil
	}

	k.metrics.keyLookup("miss")
	k.log.Info().Str("url", url).Msg("proving key cache miss, fetching")

	body, err := k.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := k.cache.Put(url, body); err != nil {
		k.log.Warn().Err(err).Str("url", url).Msg("failed to populate key cache")
	} else {
		k.log.Info().Str("url", url).Int("bytes", len(body)).Msg("proving key cached")
	}

	return body, nil
}
