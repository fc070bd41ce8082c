package models

// Recommendation modes
const (
	ModeAlgorithmic = "algorithmic"
	ModeAI          = "ai"
)

// Recommendation is one backend-scored candidate
type Recommendation struct {
	User  UserWithProfile `json:"user"`
	Score float64         `json:"score"`
}

// MatchResult is the outcome of one recommendation request, either the
// backend's top pick (algorithmic) or the LLM's choice merged back onto the
// matching candidate (ai).
type MatchResult struct {
	User   UserWithProfile `json:"user"`
	Score  float64         `json:"score"`
	Reason string          `json:"reason,omitempty"`
	Mode   string          `json:"mode"`
	Model  string          `json:"model,omitempty"`
}

// Provider is one resolved upstream chat-completion target. Resolved fresh
// per request from the model-name mapping; never persisted, never logged.
type Provider struct {
	Name    string
	URL     string
	APIKey  string
	Model   string
	Headers map[string]string
}

// ChatTurn is a single chat-completion message
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
