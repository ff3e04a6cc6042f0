package crawler

import (
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
)

var blockedHostSuffixes = []string{".local", ".internal", ".lan"}

// Reserved address space the standard predicates do not cover: IsGlobalUnicast
// admits IPv4 240.0.0.0/4 and every IPv6 address outside the delegated
// 2000::/3 global unicast block.
var (
	reservedIPv4      = netip.MustParsePrefix("240.0.0.0/4")
	globalUnicastIPv6 = netip.MustParsePrefix("2000::/3")
)

func isReservedAddr(ip netip.Addr) bool {
	if ip.Is4() {
		return reservedIPv4.Contains(ip)
	}
	return !globalUnicastIPv6.Contains(ip)
}

// IsPublicHTTPURL reports whether raw is an http(s) URL pointing at a public,
// resolvable endpoint. Localhost names, internal DNS suffixes, and private,
// loopback, link-local, reserved or multicast IP literals are rejected, as is
// anything that fails to parse.
func IsPublicHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if host == "localhost" || host == "ip6-localhost" {
		return false
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		ip = ip.Unmap()
		if ip.IsPrivate() || !ip.IsGlobalUnicast() || isReservedAddr(ip) {
			return false
		}
		return true
	}
	for _, suffix := range blockedHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return false
		}
	}
	return true
}

// Gate decides whether a candidate URL may be fetched in the current run:
// public reachability first, then domain scope, then include/exclude patterns.
type Gate struct {
	scopeHost      string
	sameDomainOnly bool
	include        []*regexp.Regexp
	exclude        []*regexp.Regexp
}

// NewGate builds a Gate scoped to the entry URL's host.
func NewGate(entry string, sameDomainOnly bool, includePatterns, excludePatterns []string) (*Gate, error) {
	u, err := url.Parse(entry)
	if err != nil {
		return nil, fmt.Errorf("parse entry url: %w", err)
	}
	return &Gate{
		scopeHost:      strings.ToLower(u.Hostname()),
		sameDomainOnly: sameDomainOnly,
		include:        CompilePatterns(includePatterns),
		exclude:        CompilePatterns(excludePatterns),
	}, nil
}

// Admit applies the admission rules in order; the first failing rule rejects.
func (g *Gate) Admit(raw string) bool {
	if !IsPublicHTTPURL(raw) {
		return false
	}
	if g.sameDomainOnly {
		u, err := url.Parse(raw)
		if err != nil || strings.ToLower(u.Hostname()) != g.scopeHost {
			return false
		}
	}
	if len(g.include) > 0 && !matchesAny(g.include, raw) {
		return false
	}
	return !matchesAny(g.exclude, raw)
}

// CompilePatterns compiles the valid patterns and silently drops malformed
// ones; bad configuration must not abort a run.
func CompilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
