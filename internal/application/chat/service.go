// Package chat answers free-form questions about a project's dictionary.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/domain/ai"
	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
	"github.com/bryanwahyu/datasense/internal/domain/sessions"
)

const (
	historyLimit  = 10
	fallbackReply = "I couldn't process that request."
)

var (
	ErrEmptyMessage = errors.New("message is required")
	ErrNoAssistant  = errors.New("chat assistant is not configured")
)

type Service struct {
	Sessions sessions.Store
	Repo     projects.Repository // optional
	AI       ai.Client
	Logger   *zap.Logger
}

// Request is one user turn. ProjectID may be uuid.Nil for a question without
// dictionary context.
type Request struct {
	ProjectID uuid.UUID
	Message   string
	History   []ai.Message
}

// Reply splits any ```sql block out of the answer.
type Reply struct {
	Role    ai.Role `json:"role"`
	Content string  `json:"content"`
	SQLCode *string `json:"sqlCode"`
	Suffix  *string `json:"suffix"`
	HasSQL  bool    `json:"hasSQL"`
}

func (s *Service) Ask(ctx context.Context, req Request) (*Reply, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, ErrEmptyMessage
	}
	if s.AI == nil {
		return nil, ErrNoAssistant
	}

	history := req.History
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	fileName, dict := s.dictionaryContext(ctx, req.ProjectID)

	text, err := s.AI.Chat(ctx, ai.ChatRequest{
		FileName: fileName,
		Fields:   dict,
		History:  history,
		Message:  req.Message,
	})
	if err != nil && !errors.Is(err, ai.ErrEmptyResponse) {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		text = fallbackReply
	}
	return split(text), nil
}

func split(text string) *Reply {
	out := &Reply{Role: ai.RoleAssistant, Content: text}
	content, sql, suffix, ok := ai.SplitSQL(text)
	if !ok {
		return out
	}
	out.HasSQL = true
	out.Content = content
	if sql != "" {
		out.SQLCode = &sql
	}
	if suffix != "" {
		out.Suffix = &suffix
	}
	return out
}

// dictionaryContext prefers the live session, then the durable copy. Lookup failures
// only cost the assistant its context.
func (s *Service) dictionaryContext(ctx context.Context, projectID uuid.UUID) (string, []fields.Analysis) {
	if projectID == uuid.Nil {
		return "", nil
	}
	if sess, ok := s.Sessions.Get(projectID); ok && len(sess.Dictionary) > 0 {
		return sess.FileName, sess.Dictionary
	}
	if s.Repo == nil {
		return "", nil
	}

	p, err := s.Repo.GetProject(ctx, projectID)
	if err != nil {
		if !errors.Is(err, projects.ErrNotFound) {
			s.logger().Warn("chat context lookup failed", zap.String("project_id", projectID.String()), zap.Error(err))
		}
		return "", nil
	}
	items, err := s.Repo.GetFields(ctx, projectID)
	if err != nil {
		s.logger().Warn("chat context fields failed", zap.String("project_id", projectID.String()), zap.Error(err))
		return "", nil
	}
	name := p.FileName
	if name == "" {
		name = "Unknown"
	}
	return name, items
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
