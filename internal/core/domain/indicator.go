package domain

import (
	"net"
	"net/url"
	"strings"
)

// NormalizeDomain turns user input such as "https://Evil[.]com/path" into a
// bare lowercase hostname. It returns false when nothing host-like remains.
func NormalizeDomain(value string) (string, bool) {
	value = Refang(strings.TrimSpace(value))
	if value == "" {
		return "", false
	}

	// Webex auto-links domains as markdown: "<http://evil.com|evil.com>"
	value = strings.Trim(value, "<>")
	if idx := strings.Index(value, "|"); idx != -1 {
		value = value[idx+1:]
	}

	if !strings.Contains(value, "://") {
		value = "http://" + value
	}

	u, err := url.Parse(value)
	if err != nil {
		return "", false
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" || !strings.Contains(host, ".") || net.ParseIP(host) != nil {
		return "", false
	}
	return host, true
}

// NormalizeIP validates an IPv4 or IPv6 address, accepting defanged input.
func NormalizeIP(value string) (string, bool) {
	value = Refang(strings.TrimSpace(value))
	ip := net.ParseIP(value)
	if ip == nil {
		return "", false
	}
	return ip.String(), true
}

// Refang reverts the common defanging notations analysts paste into chat.
func Refang(value string) string {
	r := strings.NewReplacer(
		"[.]", ".",
		"(.)", ".",
		"{.}", ".",
		"[:]", ":",
		"hxxp", "http",
		"[@]", "@",
	)
	return r.Replace(value)
}

// LooksLikeEmail is a loose check used to pick notification recipients.
func LooksLikeEmail(value string) bool {
	at := strings.LastIndex(value, "@")
	return at > 0 && at < len(value)-1 && strings.Contains(value[at:], ".") && !strings.ContainsAny(value, " \t<>")
}
