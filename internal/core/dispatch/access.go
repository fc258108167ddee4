package dispatch

import (
	"strings"

	"github.com/hive-corporation/responder/internal/core/domain"
)

// AccessPolicy restricts who may use the bot. Empty fields do not restrict.
type AccessPolicy struct {
	Domain string // email domain, without the "@"
	User   string // exact email address
}

// IsAllowed reports whether sender passes every configured restriction.
// Email addresses are compared case-insensitively.
func IsAllowed(sender domain.Sender, policy AccessPolicy) bool {
	email := strings.ToLower(strings.TrimSpace(sender.Email))

	if d := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(policy.Domain), "@")); d != "" {
		if !strings.HasSuffix(email, "@"+d) {
			return false
		}
	}

	if u := strings.ToLower(strings.TrimSpace(policy.User)); u != "" {
		if email != u {
			return false
		}
	}

	return true
}
