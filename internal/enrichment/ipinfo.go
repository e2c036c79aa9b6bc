package enrichment

import (
	"context"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// GeoInfo is the location portion of an IP lookup.
type GeoInfo struct {
	Country     string `json:"country"`
	CountryName string `json:"country_name"`
	Region      string `json:"region"`
	City        string `json:"city"`
	Org         string `json:"org"`
}

// Info is the best-effort result of enriching one IP address. A failed or
// timed-out lookup yields an Info with empty Hostname and nil Geo: the
// address is simply "unknown", never an error the caller must handle.
type Info struct {
	IP        string    `json:"ip"`
	Hostname  string    `json:"hostname,omitempty"`
	Geo       *GeoInfo  `json:"geo,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Resolver performs one IP lookup. Implementations must respect the
// context deadline.
type Resolver interface {
	Lookup(ctx context.Context, ip string) (Info, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, ip string) (Info, error)

func (f ResolverFunc) Lookup(ctx context.Context, ip string) (Info, error) {
	return f(ctx, ip)
}

// Cache and batching parameters. Entries older than the TTL are renewed;
// lookups run in small concurrent groups with a pause between groups so
// the backing service is not hammered, and each lookup carries its own
// timeout after which the result is recorded as unknown, not retried.
const (
	cacheTTL      = 24 * time.Hour
	batchSize     = 5
	batchDelay    = 200 * time.Millisecond
	lookupTimeout = 3 * time.Second
)

// Enricher decorates a Resolver with a per-IP cache and batched,
// rate-limited lookups.
type Enricher struct {
	resolver Resolver
	logger   *pterm.Logger
	cache   map[string]Info
	cacheMu sync.RWMutex
	now     func() time.Time

	ttl        time.Duration
	batchSize  int
	batchDelay time.Duration
	timeout    time.Duration
}

// NewEnricher creates an enricher around the given resolver
func NewEnricher(resolver Resolver, logger *pterm.Logger) *Enricher {
	return &Enricher{
		resolver:   resolver,
		logger:     logger,
		cache:      make(map[string]Info),
		now:        time.Now,
		ttl:        cacheTTL,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		timeout:    lookupTimeout,
	}
}

// Lookup returns the Info for one IP, consulting the cache first. Entries
// older than the TTL are refreshed; failures produce a cached "unknown".
func (e *Enricher) Lookup(ctx context.Context, ip string) Info {
	if info, ok := e.cached(ip); ok {
		e.logger.Trace("IP info cache hit", e.logger.Args("ip", ip))
		return info
	}
	return e.fetch(ctx, ip)
}

// LookupBatch resolves a set of IPs in bounded concurrent groups with a
// short delay between groups. Cached entries are served without a lookup.
func (e *Enricher) LookupBatch(ctx context.Context, ips []string) map[string]Info {
	out := make(map[string]Info, len(ips))
	var pending []string

	for _, ip := range ips {
		if _, dup := out[ip]; dup {
			continue
		}
		if info, ok := e.cached(ip); ok {
			out[ip] = info
		} else {
			out[ip] = Info{IP: ip}
			pending = append(pending, ip)
		}
	}

	var outMu sync.Mutex
	for start := 0; start < len(pending); start += e.batchSize {
		end := start + e.batchSize
		if end > len(pending) {
			end = len(pending)
		}

		var wg sync.WaitGroup
		for _, ip := range pending[start:end] {
			wg.Add(1)
			go func(ip string) {
				defer wg.Done()
				info := e.fetch(ctx, ip)
				outMu.Lock()
				out[ip] = info
				outMu.Unlock()
			}(ip)
		}
		wg.Wait()

		if end < len(pending) {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(e.batchDelay):
			}
		}
	}

	return out
}

func (e *Enricher) cached(ip string) (Info, bool) {
	e.cacheMu.RLock()
	defer e.cacheMu.RUnlock()

	info, ok := e.cache[ip]
	if !ok {
		return Info{}, false
	}
	if e.now().Sub(info.FetchedAt) > e.ttl {
		return Info{}, false
	}
	return info, true
}

// fetch performs one bounded lookup and caches whatever comes back,
// including the unknown result on failure.
func (e *Enricher) fetch(ctx context.Context, ip string) Info {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	info, err := e.resolver.Lookup(ctx, ip)
	if err != nil {
		e.logger.Debug("IP lookup failed, recording unknown",
			e.logger.Args("ip", ip, "error", err))
		info = Info{IP: ip}
	}
	info.IP = ip
	info.FetchedAt = e.now()

	e.cacheMu.Lock()
	e.cache[ip] = info
	e.cacheMu.Unlock()

	return info
}
