package urlutil

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	// ErrInvalidTargetURL is returned when a preview target is not an absolute http(s) URL.
	ErrInvalidTargetURL = errors.New("invalid target URL")
	// ErrPrivateAddress is returned when a target or a resolved address is in a private range.
	ErrPrivateAddress = errors.New("private or reserved address")
)

// privateRanges holds private and reserved networks the fetcher must never reach.
var privateRanges = mustParseCIDRs(
	// IPv4
	"127.0.0.0/8",    // loopback
	"10.0.0.0/8",     // RFC 1918
	"172.16.0.0/12",  // RFC 1918
	"192.168.0.0/16", // RFC 1918
	"169.254.0.0/16", // link-local
	"100.64.0.0/10",  // CGNAT (RFC 6598)
	"0.0.0.0/8",      // "this" network
	"224.0.0.0/4",    // multicast

	// IPv6
	"::1/128",   // loopback
	"fe80::/10", // link-local
	"fc00::/7",  // unique local
	"ff00::/8",  // multicast
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in private ranges: %s", cidr))
		}
		nets = append(nets, ipNet)
	}
	return nets
}

// IsPrivateIP returns true if the given IP belongs to a private or reserved range.
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, ipNet := range privateRanges {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// ValidateResolvedIP rejects resolved addresses in private ranges (DNS rebinding guard).
func ValidateResolvedIP(ip net.IP) error {
	if IsPrivateIP(ip) {
		return fmt.Errorf("%w: resolved IP %s", ErrPrivateAddress, ip.String())
	}
	return nil
}

// ValidateTargetURL checks that rawURL is an absolute http(s) URL with a host.
// When blockPrivate is set, hosts that are private IP literals are rejected too;
// domain names pass and must be checked again after DNS resolution.
func ValidateTargetURL(rawURL string, blockPrivate bool) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: url is empty", ErrInvalidTargetURL)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTargetURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https", ErrInvalidTargetURL)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidTargetURL)
	}

	if blockPrivate {
		if ip := net.ParseIP(parsed.Hostname()); ip != nil && IsPrivateIP(ip) {
			return nil, fmt.Errorf("%w: %s", ErrPrivateAddress, parsed.Hostname())
		}
	}

	return parsed, nil
}
