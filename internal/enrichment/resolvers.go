package enrichment

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
	"github.com/pterm/pterm"
)

// DNSResolver answers lookups with a reverse-DNS hostname.
type DNSResolver struct {
	resolver *net.Resolver
}

// NewDNSResolver creates a resolver backed by the system DNS
func NewDNSResolver() *DNSResolver {
	return &DNSResolver{resolver: net.DefaultResolver}
}

func (d *DNSResolver) Lookup(ctx context.Context, ip string) (Info, error) {
	names, err := d.resolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return Info{}, fmt.Errorf("reverse lookup failed for %s: %w", ip, err)
	}
	return Info{Hostname: strings.TrimSuffix(names[0], ".")}, nil
}

// GeoIPResolver answers lookups from local MaxMind databases. City and
// ASN databases are both optional; whichever is present contributes its
// fields.
type GeoIPResolver struct {
	cityDB *geoip2.Reader
	asnDB  *geoip2.Reader
	logger *pterm.Logger
}

// NewGeoIPResolver opens the configured MaxMind databases. A missing
// database is logged and skipped, not an error; with no databases at all
// the resolver reports every IP as unknown.
func NewGeoIPResolver(cityDBPath, asnDBPath string, logger *pterm.Logger) *GeoIPResolver {
	r := &GeoIPResolver{logger: logger}

	if cityDBPath != "" {
		cityDB, err := geoip2.Open(cityDBPath)
		if err != nil {
			logger.Warn("GeoIP City database not available",
				logger.Args("path", cityDBPath, "error", err))
		} else {
			r.cityDB = cityDB
			logger.Info("Loaded GeoIP City database", logger.Args("path", cityDBPath))
		}
	}

	if asnDBPath != "" {
		asnDB, err := geoip2.Open(asnDBPath)
		if err != nil {
			logger.Warn("GeoIP ASN database not available",
				logger.Args("path", asnDBPath, "error", err))
		} else {
			r.asnDB = asnDB
			logger.Info("Loaded GeoIP ASN database", logger.Args("path", asnDBPath))
		}
	}

	return r
}

// Enabled reports whether at least one database loaded
func (g *GeoIPResolver) Enabled() bool {
	return g.cityDB != nil || g.asnDB != nil
}

func (g *GeoIPResolver) Lookup(_ context.Context, ip string) (Info, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Info{}, fmt.Errorf("invalid IP: %s", ip)
	}

	var geo *GeoInfo

	if g.cityDB != nil {
		record, err := g.cityDB.City(parsed)
		if err == nil {
			geo = &GeoInfo{
				Country:     record.Country.IsoCode,
				CountryName: record.Country.Names["en"],
				City:        record.City.Names["en"],
			}
			if len(record.Subdivisions) > 0 {
				geo.Region = record.Subdivisions[0].Names["en"]
			}
		} else {
			g.logger.Debug("GeoIP City lookup failed", g.logger.Args("ip", ip, "error", err))
		}
	}

	if g.asnDB != nil {
		record, err := g.asnDB.ASN(parsed)
		if err == nil && record.AutonomousSystemOrganization != "" {
			if geo == nil {
				geo = &GeoInfo{}
			}
			geo.Org = record.AutonomousSystemOrganization
		}
	}

	if geo == nil {
		return Info{}, fmt.Errorf("no GeoIP data for %s", ip)
	}
	return Info{Geo: geo}, nil
}

// Close releases the open databases
func (g *GeoIPResolver) Close() {
	if g.cityDB != nil {
		g.cityDB.Close()
	}
	if g.asnDB != nil {
		g.asnDB.Close()
	}
}

// CompositeResolver merges a hostname resolver with a geo resolver. Each
// half is best-effort; the composite only fails when both do.
type CompositeResolver struct {
	dns Resolver
	geo Resolver
}

// NewCompositeResolver combines the given resolvers; either may be nil
func NewCompositeResolver(dns, geo Resolver) *CompositeResolver {
	return &CompositeResolver{dns: dns, geo: geo}
}

func (c *CompositeResolver) Lookup(ctx context.Context, ip string) (Info, error) {
	var info Info
	var dnsErr, geoErr error

	if c.dns != nil {
		var dnsInfo Info
		dnsInfo, dnsErr = c.dns.Lookup(ctx, ip)
		if dnsErr == nil {
			info.Hostname = dnsInfo.Hostname
		}
	}

	if c.geo != nil {
		var geoInfo Info
		geoInfo, geoErr = c.geo.Lookup(ctx, ip)
		if geoErr == nil {
			info.Geo = geoInfo.Geo
		}
	}

	if info.Hostname == "" && info.Geo == nil {
		if dnsErr != nil {
			return Info{}, dnsErr
		}
		if geoErr != nil {
			return Info{}, geoErr
		}
		return Info{}, fmt.Errorf("no resolvers configured")
	}

	return info, nil
}
