package llm

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
)

func TestRetryMessage(t *testing.T) {
	tests := []struct {
		name  string
		delay time.Duration
		want  string
	}{
		{
			name:  "NoDelay",
			delay: 0,
			want:  "You've exceeded the free tier request limit. The quota resets tomorrow, or you can upgrade to a paid plan for higher limits.",
		},
		{
			name:  "Seconds",
			delay: 37200 * time.Millisecond,
			want:  "You've exceeded the free tier request limit. Please try again in 38 seconds, or upgrade to a paid plan for higher limits.",
		},
		{
			name:  "OneSecond",
			delay: 400 * time.Millisecond,
			want:  "You've exceeded the free tier request limit. Please try again in 1 second, or upgrade to a paid plan for higher limits.",
		},
		{
			name:  "MinutesAndSeconds",
			delay: 61 * time.Second,
			want:  "You've exceeded the free tier request limit. Please try again in 1 minute and 1 second, or upgrade to a paid plan for higher limits.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RetryMessage(tt.delay); got != tt.want {
				t.Errorf("RetryMessage(%s) = %q, want %q", tt.delay, got, tt.want)
			}
		})
	}
}

func TestParseRetryDelay(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
		ok   bool
	}{
		{"38s", 38 * time.Second, true},
		{"1.5", 1500 * time.Millisecond, true},
		{"45000", 45 * time.Second, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseRetryDelay(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRetryDelay(%q) = %s,%v want %s,%v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestClassifyGRPC(t *testing.T) {
	t.Run("ResourceExhaustedWithRetryInfo", func(t *testing.T) {
		st, err := status.New(codes.ResourceExhausted, "quota").WithDetails(&errdetails.RetryInfo{
			RetryDelay: durationpb.New(38 * time.Second),
		})
		if err != nil {
			t.Fatalf("WithDetails: %v", err)
		}

		classified := classifyGRPC("gemini", fmt.Errorf("failed to generate content: %w", st.Err()))
		var rateErr *RateLimitError
		if !errors.As(classified, &rateErr) {
			t.Fatalf("Expected RateLimitError, got %v", classified)
		}
		if rateErr.RetryAfter != 38*time.Second {
			t.Errorf("Expected 38s, got %s", rateErr.RetryAfter)
		}
	})

	t.Run("PermissionDenied", func(t *testing.T) {
		classified := classifyGRPC("gemini", status.Error(codes.PermissionDenied, "bad key"))
		var authErr *AuthError
		if !errors.As(classified, &authErr) {
			t.Fatalf("Expected AuthError, got %v", classified)
		}
		if classified.Error() != authMessage {
			t.Errorf("Unexpected message %q", classified.Error())
		}
	})

	t.Run("GoogleAPIError", func(t *testing.T) {
		classified := classifyGRPC("gemini", &googleapi.Error{Code: http.StatusTooManyRequests})
		var rateErr *RateLimitError
		if !errors.As(classified, &rateErr) {
			t.Fatalf("Expected RateLimitError, got %v", classified)
		}
	})

	t.Run("PassThrough", func(t *testing.T) {
		plain := errors.New("connection reset")
		if got := classifyGRPC("gemini", plain); got != plain {
			t.Errorf("Expected plain error to pass through, got %v", got)
		}
	})
}
