package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// CachedPromHandler serves a text exposition of gatherer that is rebuilt
// every ttl instead of on every scrape.
type CachedPromHandler struct {
	mu       sync.RWMutex
	cache    []byte
	gatherer prometheus.Gatherer
	ttl      time.Duration
	live     http.Handler
	logger   *slog.Logger
}

// NewCachedPromHandler fills the cache once and keeps refreshing it until
// ctx is done.
func NewCachedPromHandler(ctx context.Context, gatherer prometheus.Gatherer, ttl time.Duration, logger *slog.Logger) *CachedPromHandler {
	c := &CachedPromHandler{
		gatherer: gatherer,
		ttl:      ttl,
		live:     promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		logger:   logger,
	}
	c.refresh()

	go c.refreshLoop(ctx)
	return c
}

func (c *CachedPromHandler) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh()
		}
	}
}

// refresh re-encodes every metric family. A failed gather keeps the
// previous exposition.
func (c *CachedPromHandler) refresh() {
	families, err := c.gatherer.Gather()
	if err != nil {
		c.logger.Warn("failed to gather metrics", "error", err)
		return
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			c.logger.Warn("failed to encode metric family", "name", mf.GetName(), "error", err)
			return
		}
	}

	c.mu.Lock()
	c.cache = buf.Bytes()
	c.mu.Unlock()
}

// ServeHTTP writes the cached exposition, or a live one while the cache
// is still empty.
func (c *CachedPromHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	cached := c.cache
	c.mu.RUnlock()

	if len(cached) == 0 {
		c.live.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	_, _ = w.Write(cached)
}
