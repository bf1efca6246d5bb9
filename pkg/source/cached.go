package source

import (
	"bytes"
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docktree/pkg/cache"
	dtio "github.com/matzehuels/docktree/pkg/io"
	"github.com/matzehuels/docktree/pkg/layer"
)

// Cached wraps a source with a record cache and retries.
//
// Records are stored JSON-encoded under [cache.Keyer.RecordsKey]. If the
// inner source implements [Fingerprinter], the fingerprint becomes part of
// the key so a changed file is never served stale; a source that cannot
// produce a fingerprint bypasses the cache. Fetches are retried with
// [cache.Backoff] when they fail with a [cache.Retryable] error.
type Cached struct {
	Inner   Source
	Cache   cache.Cache
	Keyer   cache.Keyer
	TTL     time.Duration
	Refresh bool // skip the lookup but still store the fresh result
	Backoff cache.Backoff
	Logger  *log.Logger
}

// NewCached wraps inner with c. Nil arguments select a NullCache,
// the default keyer and the default logger.
func NewCached(inner Source, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Cached {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Cached{
		Inner:   inner,
		Cache:   c,
		Keyer:   keyer,
		TTL:     cache.RecordsTTL,
		Backoff: cache.DefaultBackoff,
		Logger:  logger,
	}
}

// Name returns the inner source's name.
func (c *Cached) Name() string { return c.Inner.Name() }

// Records serves from the cache when possible, otherwise fetches with
// retries and stores the result. Cache failures are logged, never returned.
func (c *Cached) Records(ctx context.Context) ([]layer.Record, error) {
	key, cacheable := c.key()
	if cacheable && !c.Refresh {
		data, hit, err := c.Cache.Get(ctx, key)
		switch {
		case err != nil:
			c.Logger.Warn("cache lookup failed", "source", c.Name(), "err", err)
		case hit:
			if records, err := dtio.ReadRecords(bytes.NewReader(data)); err == nil {
				c.Logger.Debug("records from cache", "source", c.Name(), "records", len(records))
				return records, nil
			}
			c.Logger.Debug("dropping undecodable cache entry", "source", c.Name())
		}
	}

	var records []layer.Record
	err := c.Backoff.Do(ctx, func() error {
		var err error
		records, err = c.Inner.Records(ctx)
		if err != nil && cache.IsRetryable(err) {
			c.Logger.Warn("fetch failed, retrying", "source", c.Name(), "err", err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if cacheable {
		var buf bytes.Buffer
		if err := dtio.WriteRecords(&buf, records); err == nil {
			if err := c.Cache.Set(ctx, key, buf.Bytes(), c.TTL); err != nil {
				c.Logger.Warn("cache store failed", "source", c.Name(), "err", err)
			}
		}
	}
	return records, nil
}

func (c *Cached) key() (string, bool) {
	var opts cache.RecordsKeyOpts
	if fp, ok := c.Inner.(Fingerprinter); ok {
		f, err := fp.Fingerprint()
		if err != nil {
			return "", false
		}
		opts.Fingerprint = f
	}
	return c.Keyer.RecordsKey(c.Name(), opts), true
}
