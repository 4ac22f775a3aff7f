package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const authMessage = "Invalid API key or insufficient permissions. Please check your API key configuration."

// RateLimitError reports an upstream quota rejection.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return RetryMessage(e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// AuthError reports rejected credentials; callers surface it as a configuration problem.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return authMessage
}

func (e *AuthError) Unwrap() error { return e.Err }

// RetryMessage renders a human readable retry hint for a rate limit.
func RetryMessage(delay time.Duration) string {
	msg := "You've exceeded the free tier request limit."
	if delay <= 0 {
		return msg + " The quota resets tomorrow, or you can upgrade to a paid plan for higher limits."
	}

	seconds := int(math.Ceil(delay.Seconds()))
	minutes := seconds / 60
	remaining := seconds % 60
	if minutes > 0 {
		msg += fmt.Sprintf(" Please try again in %d minute%s", minutes, plural(minutes))
		if remaining > 0 {
			msg += fmt.Sprintf(" and %d second%s", remaining, plural(remaining))
		}
		return msg + ", or upgrade to a paid plan for higher limits."
	}
	return msg + fmt.Sprintf(" Please try again in %d second%s, or upgrade to a paid plan for higher limits.", seconds, plural(seconds))
}

// ParseRetryDelay reads a RetryInfo style delay such as "38s" or "38.5".
// Bare values above 1000 are treated as milliseconds.
func ParseRetryDelay(raw string) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.TrimSuffix(raw, "s"), 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	if value > 1000 {
		value = value / 1000
	}
	return time.Duration(value * float64(time.Second)), true
}

// classifyGRPC maps gRPC status errors returned by Google clients onto the error taxonomy.
func classifyGRPC(provider string, err error) error {
	if err == nil {
		return nil
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return classifyHTTP(provider, gErr.Code, nil, 0, err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.ResourceExhausted:
		var delay time.Duration
		for _, detail := range st.Details() {
			if info, ok := detail.(*errdetails.RetryInfo); ok && info.GetRetryDelay() != nil {
				delay = info.GetRetryDelay().AsDuration()
			}
		}
		return &RateLimitError{Provider: provider, RetryAfter: delay, Err: err}
	case codes.PermissionDenied, codes.Unauthenticated:
		return &AuthError{Provider: provider, Err: err}
	default:
		return err
	}
}

// classifyHTTP maps HTTP status codes onto the error taxonomy.
func classifyHTTP(provider string, statusCode int, body []byte, retryAfter time.Duration, err error) error {
	switch statusCode {
	case http.StatusTooManyRequests:
		if retryAfter <= 0 {
			retryAfter = retryDelayFromBody(body)
		}
		return &RateLimitError{Provider: provider, RetryAfter: retryAfter, Err: err}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Provider: provider, Err: err}
	default:
		return err
	}
}

// retryDelayFromBody extracts google.rpc.RetryInfo from a JSON error payload.
func retryDelayFromBody(body []byte) time.Duration {
	if len(body) == 0 {
		return 0
	}
	var payload struct {
		Error struct {
			Details []struct {
				Type       string          `json:"@type"`
				RetryDelay json.RawMessage `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0
	}
	for _, detail := range payload.Error.Details {
		if !strings.HasSuffix(detail.Type, "google.rpc.RetryInfo") || len(detail.RetryDelay) == 0 {
			continue
		}
		raw := strings.Trim(string(detail.RetryDelay), `"`)
		if d, ok := ParseRetryDelay(raw); ok {
			return d
		}
	}
	return 0
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}
