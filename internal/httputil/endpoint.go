package httputil

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// ValidateEndpoint checks the base URL of an upstream service (model server,
// meal planner worker) and returns it without a trailing slash. field names
// the config key in errors. Hosts on loopback, private or link-local ranges
// are refused unless allowPrivate is set.
func ValidateEndpoint(field, raw string, allowPrivate bool) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		return "", fmt.Errorf("%s: scheme %q must be http or https", field, u.Scheme)
	case u.Hostname() == "":
		return "", fmt.Errorf("%s: missing host", field)
	case u.User != nil:
		return "", fmt.Errorf("%s: credentials belong in the api key, not the url", field)
	case u.RawQuery != "" || u.Fragment != "":
		return "", fmt.Errorf("%s: query and fragment are not allowed", field)
	}
	if !allowPrivate && isInternalHost(u.Hostname()) {
		return "", fmt.Errorf("%s: host %q is not publicly routable", field, u.Hostname())
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}

func isInternalHost(host string) bool {
	h := strings.ToLower(host)
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return true
	}
	addr, err := netip.ParseAddr(h)
	if err != nil {
		return false
	}
	addr = addr.Unmap().WithZone("")
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified() || !addr.IsGlobalUnicast()
}
