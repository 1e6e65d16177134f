package ai

import (
	"context"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
)

// Role of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role   `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// FieldContext is what the model sees about one field when asked to describe it.
type FieldContext struct {
	FieldName    string
	DetectedType fields.DetectedType
	SampleValues []string
	FileName     string
	IsPrimaryKey bool
	Patterns     []fields.Pattern
}

// ChatRequest asks the assistant a question about one dictionary.
type ChatRequest struct {
	FileName string
	Fields   []fields.Analysis
	History  []Message
	Message  string
}

// Client port for the external language model. Implementations own the prompts;
// callers get the raw model text back.
type Client interface {
	DescribeField(ctx context.Context, fc FieldContext) (string, error)
	Chat(ctx context.Context, req ChatRequest) (string, error)
}
