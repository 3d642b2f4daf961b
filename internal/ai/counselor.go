package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	FallbackReply = "I apologize, but I was unable to generate a response. Please try again."
	FallbackTitle = "Career Discussion"

	maxTitleRunes = 50
)

var ErrGenerationFailed = errors.New("failed to generate career counseling response")

const counselorInstruction = `You are an expert career counselor with extensive experience in helping people navigate their professional journeys. Your role is to provide thoughtful, personalized career guidance that helps individuals make informed decisions about their professional development.

Key principles:
- Be empathetic and supportive
- Ask clarifying questions when needed
- Provide practical, actionable advice
- Consider both short-term and long-term career goals
- Be honest about challenges while remaining encouraging
- Focus on skills development, networking, and strategic career moves
- Consider work-life balance and personal values
- Stay up-to-date with current job market trends

When responding:
- Keep responses conversational but professional
- Provide specific examples when possible
- Suggest concrete next steps
- Be encouraging but realistic
- Ask follow-up questions to better understand their situation

Every person's career journey is unique, so tailor your advice to their specific situation, goals, and circumstances.`

const titleInstruction = `Generate a short, descriptive title (max 50 characters) for a career counseling conversation based on the first message. The title should capture the main topic or concern. Reply with the title only.`

// Counselor produces counseling replies and session titles. It keeps no
// state between calls and never retries.
type Counselor struct {
	completer Completer
}

func NewCounselor(completer Completer) *Counselor {
	return &Counselor{completer: completer}
}

// Reply answers the last user turn of transcript. A model that answers with
// nothing yields FallbackReply rather than an error.
func (c *Counselor) Reply(ctx context.Context, transcript []ChatMessage) (string, error) {
	messages := make([]ChatMessage, 0, len(transcript)+1)
	messages = append(messages, ChatMessage{Role: RoleSystem, Content: counselorInstruction})
	messages = append(messages, transcript...)

	text, err := c.completer.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackReply, nil
	}
	return text, nil
}

// Title derives a session title from the first user message. On failure the
// error is returned together with FallbackTitle so callers can use either.
func (c *Counselor) Title(ctx context.Context, seed string) (string, error) {
	messages := []ChatMessage{
		{Role: RoleSystem, Content: titleInstruction},
		{Role: RoleUser, Content: fmt.Sprintf("First message: %q", seed)},
	}

	text, err := c.completer.Complete(ctx, messages)
	if err != nil {
		return FallbackTitle, fmt.Errorf("generate session title failed: %w", err)
	}
	title := CleanTitle(text)
	if title == "" {
		return FallbackTitle, nil
	}
	return title, nil
}

// CleanTitle keeps the first non-empty line of a model answer, strips
// decoration models like to add, and caps the length.
func CleanTitle(raw string) string {
	var line string
	for _, candidate := range strings.Split(raw, "\n") {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			line = candidate
			break
		}
	}
	line = strings.TrimPrefix(line, "Title:")
	line = strings.TrimPrefix(line, "title:")
	line = strings.Trim(strings.TrimSpace(line), "\"'`*#")
	line = strings.TrimSpace(line)

	if utf8.RuneCountInString(line) > maxTitleRunes {
		runes := []rune(line)
		line = strings.TrimSpace(string(runes[:maxTitleRunes]))
	}
	return line
}
