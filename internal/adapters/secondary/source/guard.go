package source

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// allowedPorts are the only explicit ports a source URL may name. An
// empty port means the scheme default and is always fine.
var allowedPorts = map[string]bool{
	"":     true,
	"80":   true,
	"443":  true,
	"8080": true,
	"8443": true,
}

// GuardURL validates a URL against the SSRF policy before any request is
// made: scheme, hostname, every resolved address, and port all have to
// pass. It also runs on every redirect target, so a public host cannot
// bounce the fetcher into a private network.
func GuardURL(ctx context.Context, raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, entities.WrapPipelineError(entities.CodeInvalidFileURL, "invalid url", err)
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return nil, entities.NewPipelineError(entities.CodeURLForbidden,
			fmt.Sprintf("scheme %q is not allowed, use http or https", u.Scheme))
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, entities.NewPipelineError(entities.CodeInvalidFileURL, "url has no host")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return nil, entities.NewPipelineError(entities.CodeURLForbidden,
			fmt.Sprintf("host %q resolves to this machine", host))
	}

	if !allowedPorts[u.Port()] {
		return nil, entities.NewPipelineError(entities.CodeURLForbidden,
			fmt.Sprintf("port %s is not allowed", u.Port()))
	}

	if ip := net.ParseIP(host); ip != nil {
		if reason := forbiddenIP(ip); reason != "" {
			return nil, entities.NewPipelineError(entities.CodeURLForbidden,
				fmt.Sprintf("address %s is %s", ip, reason))
		}
		return u, nil
	}

	// Check every record, not just the first: an attacker-controlled
	// name can mix a public address with a private one.
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, entities.WrapPipelineError(entities.CodeURLConnectionFailed,
			fmt.Sprintf("could not resolve %q", host), err)
	}
	for _, addr := range addrs {
		if reason := forbiddenIP(addr.IP); reason != "" {
			return nil, entities.NewPipelineError(entities.CodeURLForbidden,
				fmt.Sprintf("host %q resolves to %s address %s", host, reason, addr.IP))
		}
	}

	return u, nil
}

// forbiddenIP names why an address is off limits, or returns "" for
// public addresses. IPv4-mapped IPv6 addresses are checked as their
// embedded IPv4 form by the net predicates.
func forbiddenIP(ip net.IP) string {
	switch {
	case ip.IsLoopback():
		return "a loopback"
	case ip.IsPrivate():
		return "a private"
	case ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast():
		return "a link-local"
	case ip.IsUnspecified():
		return "an unspecified"
	case ip.IsMulticast():
		return "a multicast"
	default:
		return ""
	}
}
