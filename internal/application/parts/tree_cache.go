package parts

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/partdb/backend/internal/domain/shared"
)

// Cache tags that are not tied to a single element kind
const (
	TagSidebarTree = "sidebar_tree_update"
	TagUser        = "user"
	TagGroups      = "groups"
)

// TagCache stores JSON-serialisable values that can be dropped by tag
type TagCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error
	InvalidateTags(ctx context.Context, tags ...string) error
}

// KindTag returns the cache tag of all cached data derived from elements of kind t
func KindTag(t shared.TargetType) string {
	return "tree_" + string(t)
}

// UserTag returns the tag of data cached for one user
func UserTag(id uint) string {
	return "user_" + strconv.FormatUint(uint64(id), 10)
}

// TagsFor returns the tags to invalidate when an element of type t with id
// changed
func TagsFor(t shared.TargetType, id uint) []string {
	switch {
	case t.IsStructural():
		return []string{KindTag(t), TagSidebarTree}
	case t == shared.TargetLabelProfile:
		return []string{KindTag(t)}
	case t == shared.TargetUser:
		return []string{UserTag(id), TagUser}
	case t == shared.TargetGroup:
		return []string{KindTag(t), TagGroups}
	}
	return nil
}

// CacheInvalidationHandler clears cached trees when elements change. It is
// subscribed to ElementChanged events and therefore runs after commit.
type CacheInvalidationHandler struct {
	cache  TagCache
	logger *zap.Logger
}

// NewCacheInvalidationHandler creates the handler
func NewCacheInvalidationHandler(cache TagCache, logger *zap.Logger) *CacheInvalidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheInvalidationHandler{cache: cache, logger: logger}
}

// EventTypes implements shared.EventHandler
func (h *CacheInvalidationHandler) EventTypes() []string {
	return []string{shared.EventElementChanged}
}

// Handle implements shared.EventHandler
func (h *CacheInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*shared.ElementChangedEvent)
	if !ok {
		return nil
	}
	tags := TagsFor(e.TargetType, e.TargetID)
	if len(tags) == 0 {
		return nil
	}
	if err := h.cache.InvalidateTags(ctx, tags...); err != nil {
		h.logger.Warn("Failed to invalidate cache tags",
			zap.Strings("tags", tags),
			zap.Error(err))
		return err
	}
	return nil
}

var _ shared.EventHandler = (*CacheInvalidationHandler)(nil)
