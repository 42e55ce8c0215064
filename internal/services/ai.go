package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/task-tracker-api/internal/constants"
)

// TaskDraft is a suggested task extracted from free text. Drafts are never stored.
type TaskDraft struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Deadline    *time.Time `json:"deadline"`
}

// TaskDraftGenerator turns free text into task drafts.
type TaskDraftGenerator interface {
	GenerateDrafts(ctx context.Context, text string, now time.Time) ([]TaskDraft, error)
}

// AIService drafts tasks with OpenAI chat completions
type AIService struct {
	client *openai.Client
	model  string
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4o,
	}
}

// GenerateDrafts asks the model for a JSON array of drafts
func (s *AIService) GenerateDrafts(ctx context.Context, text string, now time.Time) ([]TaskDraft, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	prompt := fmt.Sprintf(`You extract concrete tasks from text.

Current time: %s

Text:
%s

Return a JSON array of the tasks you found:
[
  {
    "title": "short title, at most 60 characters",
    "description": "details, at most 255 characters",
    "deadline": "due date in RFC 3339 format, e.g. 2025-10-28T23:59:59Z, or null when none is given"
  }
]

Rules:
- Return [] when there are no tasks
- Turn relative dates such as "tomorrow" or "next week" into absolute ones
- Return only the JSON, no explanation`, now.Format(time.RFC3339), text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return parseDrafts(resp.Choices[0].Message.Content)
}

// parseDrafts decodes the model output, tolerating a fenced code block around it.
func parseDrafts(content string) ([]TaskDraft, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var drafts []TaskDraft
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	return drafts, nil
}

// GenerateTasks drafts tasks from text. Drafts without a title are dropped,
// long fields are clipped and deadlines that are not in the future are cleared.
func (s *TaskService) GenerateTasks(ctx context.Context, text string) ([]TaskDraft, error) {
	if s.generator == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrAITextRequired
	}

	now := s.now()
	drafts, err := s.generator.GenerateDrafts(ctx, text, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}
	if len(drafts) == 0 {
		return nil, ErrAINoTasksGenerated
	}

	valid := make([]TaskDraft, 0, len(drafts))
	for _, d := range drafts {
		title := clip(strings.TrimSpace(d.Title), constants.MaxTitleLength)
		if title == "" {
			continue
		}
		d.Title = title
		d.Description = clip(strings.TrimSpace(d.Description), constants.MaxDescriptionLength)
		if d.Deadline != nil && !d.Deadline.After(now) {
			d.Deadline = nil
		}
		valid = append(valid, d)
		if len(valid) == constants.MaxAIGeneratedTasks {
			break
		}
	}

	if len(valid) == 0 {
		return nil, ErrAINoValidTasks
	}
	return valid, nil
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:limit]))
}
