package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure for rendering and metrics.
type Kind string

const (
	KindConfiguration     Kind = "configuration"
	KindAuthentication    Kind = "authentication"
	KindNotFound          Kind = "not_found"
	KindUpstream          Kind = "upstream"
	KindMalformedResponse Kind = "malformed_response"
	KindDuplicateCommand  Kind = "duplicate_command"
	KindAccessDenied      Kind = "access_denied"
	KindInvalidArgument   Kind = "invalid_argument"
	KindInternal          Kind = "internal"
)

// ConfigurationError reports settings a command needs but cannot find.
type ConfigurationError struct {
	Component string
	Missing   []string // environment variable names
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured: missing %s", e.Component, strings.Join(e.Missing, ", "))
}

// AuthenticationError is returned when a vendor rejects our credentials.
type AuthenticationError struct {
	Vendor     string
	StatusCode int
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s rejected the configured credentials (status %d)", e.Vendor, e.StatusCode)
}

type NotFoundError struct {
	Vendor   string
	Resource string // ex: "computer", "domain", "ip"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s not found: %s", e.Vendor, e.Resource, e.ID)
}

// UpstreamError covers transport failures and non-2xx answers that are not
// classified more precisely.
type UpstreamError struct {
	Vendor     string
	StatusCode int // 0 when the request never got an answer
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Vendor)
	sb.WriteString(" request failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// MalformedResponseError is returned when a body does not match the expected schema.
type MalformedResponseError struct {
	Vendor string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s returned an unexpected response: %v", e.Vendor, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

type DuplicateCommandError struct {
	Name string
}

func (e *DuplicateCommandError) Error() string {
	return fmt.Sprintf("command %q is already registered", e.Name)
}

type AccessDeniedError struct {
	Email string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied for %s", e.Email)
}

// ArgumentError reports unusable command arguments together with the usage line.
type ArgumentError struct {
	Command string
	Message string
	Usage   string
}

func (e *ArgumentError) Error() string {
	if e.Usage == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (usage: %s)", e.Message, e.Usage)
}

// KindOf walks the error chain and returns the first known failure kind.
func KindOf(err error) Kind {
	var (
		configErr    *ConfigurationError
		authErr      *AuthenticationError
		notFoundErr  *NotFoundError
		upstreamErr  *UpstreamError
		malformedErr *MalformedResponseError
		dupErr       *DuplicateCommandError
		deniedErr    *AccessDeniedError
		argErr       *ArgumentError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &configErr):
		return KindConfiguration
	case errors.As(err, &authErr):
		return KindAuthentication
	case errors.As(err, &notFoundErr):
		return KindNotFound
	case errors.As(err, &malformedErr):
		return KindMalformedResponse
	case errors.As(err, &upstreamErr):
		return KindUpstream
	case errors.As(err, &dupErr):
		return KindDuplicateCommand
	case errors.As(err, &deniedErr):
		return KindAccessDenied
	case errors.As(err, &argErr):
		return KindInvalidArgument
	default:
		return KindInternal
	}
}

// UserMessage returns a short text that is safe to show in a chat room.
func UserMessage(err error) string {
	var (
		configErr   *ConfigurationError
		authErr     *AuthenticationError
		notFoundErr *NotFoundError
		upstreamErr *UpstreamError
		argErr      *ArgumentError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &argErr):
		return argErr.Error()
	case errors.As(err, &configErr):
		return fmt.Sprintf("%s is not configured on this bot. Ask an administrator to set %s.",
			configErr.Component, strings.Join(configErr.Missing, ", "))
	case errors.As(err, &authErr):
		return fmt.Sprintf("%s rejected the bot's credentials.", authErr.Vendor)
	case errors.As(err, &notFoundErr):
		return fmt.Sprintf("Sorry, I couldn't find that %s: %s", notFoundErr.Resource, notFoundErr.ID)
	case KindOf(err) == KindMalformedResponse:
		return "The upstream service returned data I could not understand."
	case errors.As(err, &upstreamErr):
		if upstreamErr.Message != "" {
			return fmt.Sprintf("%s returned an error: %s", upstreamErr.Vendor, upstreamErr.Message)
		}
		if upstreamErr.StatusCode != 0 {
			return fmt.Sprintf("%s returned an error (status %d).", upstreamErr.Vendor, upstreamErr.StatusCode)
		}
		return fmt.Sprintf("%s is unreachable right now.", upstreamErr.Vendor)
	default:
		return "Something went wrong while running that command."
	}
}
