package generation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/MrJamesThe3rd/docforge/internal/templates"
)

type cachedTemplate struct {
	tpl *templates.Template
	src []byte
}

// CachedTemplateSource memoises template lookups. Published template versions
// never change, so entries only expire to bound memory.
type CachedTemplateSource struct {
	next  TemplateSource
	cache *cache.Cache
}

func NewCachedTemplateSource(next TemplateSource, ttl time.Duration) *CachedTemplateSource {
	return &CachedTemplateSource{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachedTemplateSource) Source(ctx context.Context, id uuid.UUID) (*templates.Template, []byte, error) {
	if v, ok := c.cache.Get(id.String()); ok {
		entry := v.(cachedTemplate)
		return entry.tpl, entry.src, nil
	}

	tpl, src, err := c.next.Source(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	c.cache.SetDefault(id.String(), cachedTemplate{tpl: tpl, src: src})

	return tpl, src, nil
}
