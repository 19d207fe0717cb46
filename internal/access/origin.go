package access

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

var localHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// ExtractOrigin returns the declared origin of a request: the explicit
// origin query parameter, then the Origin header, then the scheme and
// host of the Referer.
func ExtractOrigin(r *http.Request) string {
	if o := strings.TrimSpace(r.URL.Query().Get("origin")); o != "" {
		return o
	}
	if o := strings.TrimSpace(r.Header.Get("Origin")); o != "" && o != "null" {
		return o
	}
	if ref := strings.TrimSpace(r.Header.Get("Referer")); ref != "" {
		if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return ""
}

// HostOf returns the lowercased hostname of an origin URL
func HostOf(origin string) string {
	if origin == "" {
		return ""
	}
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// RequestHost returns the lowercased host the request was served on
func RequestHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.Trim(host, "[]"))
}

// IsLocalHost reports whether host is a loopback development host
func IsLocalHost(host string) bool {
	return localHosts[host]
}

// HostAllowed reports whether host equals an allow-list entry or is a
// subdomain of one. Leading dots on entries are ignored and matches are
// anchored on a dot boundary.
func HostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return false
	}
	for _, rule := range allowed {
		rule = strings.TrimLeft(strings.ToLower(strings.TrimSpace(rule)), ".")
		if rule == "" {
			continue
		}
		if host == rule || strings.HasSuffix(host, "."+rule) {
			return true
		}
	}
	return false
}
