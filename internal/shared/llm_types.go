package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// AgentMeta holds operational metadata for a generation call.
type AgentMeta struct {
	AgentName string
	Provider  string
	Usage     TokenUsage
	Latency   time.Duration
	CacheHit  bool
}
