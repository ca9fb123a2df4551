package infoprovider

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/infrastructure/telemetry"
)

// TagInfoProviders tags every cached provider response
const TagInfoProviders = "info_provider"

// DefaultCacheTTL is used when the retriever is created without a TTL
const DefaultCacheTTL = 7 * 24 * time.Hour

// PartInfoRetriever runs searches against providers and caches the results
// per provider and keyword
type PartInfoRetriever struct {
	registry *Registry
	cache    appparts.TagCache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewPartInfoRetriever creates a retriever. cache may be nil.
func NewPartInfoRetriever(registry *Registry, cache appparts.TagCache, ttl time.Duration, logger *zap.Logger) *PartInfoRetriever {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PartInfoRetriever{registry: registry, cache: cache, ttl: ttl, logger: logger}
}

// Registry returns the provider registry
func (r *PartInfoRetriever) Registry() *Registry {
	return r.registry
}

// SearchByKeyword searches keyword with the given providers, or with all
// active providers if keys is empty. Results keep the order of keys.
func (r *PartInfoRetriever) SearchByKeyword(ctx context.Context, keyword string, keys []string) ([]SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}

	var providers []Provider
	if len(keys) == 0 {
		providers = r.registry.Active()
	} else {
		for _, key := range keys {
			p, err := r.registry.Get(key)
			if err != nil {
				return nil, err
			}
			providers = append(providers, p)
		}
	}
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	results := make([][]SearchResult, len(providers))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		g.Go(func() error {
			found, err := r.search(gctx, p, keyword)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []SearchResult
	for _, found := range results {
		out = append(out, found...)
	}
	if out == nil {
		out = []SearchResult{}
	}
	return out, nil
}

func (r *PartInfoRetriever) search(ctx context.Context, p Provider, keyword string) ([]SearchResult, error) {
	key := "search_" + p.Key() + "_" + strings.ToLower(keyword)
	var cached []SearchResult
	if r.getCached(ctx, key, &cached) {
		return cached, nil
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "info_provider", "search",
		attribute.String("provider", p.Key()), attribute.String("keyword", keyword))
	defer span.End()
	found, err := p.SearchByKeyword(ctx, keyword)
	if err != nil {
		telemetry.RecordError(span, err)
		r.logger.Warn("Info provider search failed",
			zap.String("provider", p.Key()), zap.String("keyword", keyword), zap.Error(err))
		return nil, err
	}
	for i := range found {
		found[i].ProviderKey = p.Key()
	}
	r.setCached(ctx, key, found)
	return found, nil
}

// GetDetails returns the details of part id from provider key
func (r *PartInfoRetriever) GetDetails(ctx context.Context, key, id string) (*PartDetail, error) {
	p, err := r.registry.Get(key)
	if err != nil {
		return nil, err
	}
	cacheKey := "details_" + key + "_" + id
	var cached PartDetail
	if r.getCached(ctx, cacheKey, &cached) {
		return &cached, nil
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "info_provider", "details",
		attribute.String("provider", key), attribute.String("id", id))
	defer span.End()
	detail, err := p.GetDetails(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	detail.ProviderKey = key
	r.setCached(ctx, cacheKey, detail)
	return detail, nil
}

func (r *PartInfoRetriever) getCached(ctx context.Context, key string, dest any) bool {
	if r.cache == nil {
		return false
	}
	ok, err := r.cache.Get(ctx, key, dest)
	if err != nil {
		r.logger.Warn("Failed to read cached provider response", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (r *PartInfoRetriever) setCached(ctx context.Context, key string, value any) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, value, r.ttl, TagInfoProviders); err != nil {
		r.logger.Warn("Failed to cache provider response", zap.String("key", key), zap.Error(err))
	}
}
