package index

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/stanzabuild/stanza/pkg/observability"
	"github.com/stanzabuild/stanza/pkg/registry"
)

// Upstream fetches version lists when the store has no fresh entry.
type Upstream interface {
	Versions(ctx context.Context, packageName string) ([]registry.Version, error)
}

// Cached serves version lists from the store and falls back to the upstream
// registry client. Store failures degrade to upstream lookups instead of
// failing resolution; the index is a cache, not a dependency.
type Cached struct {
	store    *Store
	upstream Upstream
	metrics  *observability.Metrics
	log      *logrus.Logger
}

// NewCached wires a store in front of an upstream index.
func NewCached(store *Store, upstream Upstream, metrics *observability.Metrics, log *logrus.Logger) (*Cached, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if upstream == nil {
		return nil, fmt.Errorf("upstream index is required")
	}
	if log == nil {
		log = logrus.New()
	}
	return &Cached{store: store, upstream: upstream, metrics: metrics, log: log}, nil
}

// Versions returns the package's published versions, serving from the store
// while the entry is fresh.
func (c *Cached) Versions(ctx context.Context, packageName string) ([]registry.Version, error) {
	raw, fresh, err := c.store.Get(ctx, packageName)
	if err != nil {
		c.log.WithError(err).Warnf("Index lookup failed for %s, falling back to registry", packageName)
	}
	if fresh {
		versions, parseErr := parseAll(raw)
		if parseErr == nil {
			c.countCache(true)
			return versions, nil
		}
		c.log.WithError(parseErr).Warnf("Discarding corrupt index entry for %s", packageName)
	}
	c.countCache(false)

	versions, err := c.upstream.Versions(ctx, packageName)
	if err != nil {
		return nil, err
	}

	stored := make([]string, 0, len(versions))
	for _, v := range versions {
		stored = append(stored, v.String())
	}
	if err := c.store.Put(ctx, packageName, stored); err != nil {
		c.log.WithError(err).Warnf("Failed to index versions for %s", packageName)
	}

	return versions, nil
}

func (c *Cached) countCache(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHitsTotal.WithLabelValues("index").Inc()
		return
	}
	c.metrics.CacheMissesTotal.WithLabelValues("index").Inc()
}

func parseAll(raw []string) ([]registry.Version, error) {
	versions := make([]registry.Version, 0, len(raw))
	for _, s := range raw {
		v, err := registry.ParseVersion(s)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}
