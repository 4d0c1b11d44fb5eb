// Package provider exposes remote summarization backends through one
// client interface. Implementations differ in endpoint shape and required
// fields; callers select one via New from a resolved configuration.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anyspecs/anyspecs/internal/config"
	"github.com/anyspecs/anyspecs/internal/session"
)

// Options adjusts a single Compress call.
type Options struct {
	// DryRun builds and returns the exact request payload without any
	// network I/O.
	DryRun bool
}

// Capabilities describes what a provider supports and requires.
type Capabilities struct {
	RequiresGroupID bool
	MaxInputBytes   int
}

// Client compresses one session into artifact text.
type Client interface {
	Name() string
	Model() string
	Capabilities() Capabilities

	// Compress renders the session through promptTemplate and returns the
	// completion text. With Options.DryRun it returns the serialized
	// request payload instead.
	Compress(ctx context.Context, sess *session.Session, promptTemplate string, opts Options) (string, error)
}

// New constructs the client for the resolved configuration.
func New(cfg *config.ProviderConfig) (Client, error) {
	switch cfg.Provider {
	case "minimax":
		return newMinimaxClient(cfg), nil
	case "aihubmix", "kimi", "ppio":
		return newOpenAIClient(cfg), nil
	default:
		// Unknown providers resolved with an explicit base URL speak the
		// OpenAI-compatible dialect.
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
		}
		return newOpenAIClient(cfg), nil
	}
}

// DefaultPromptTemplate instructs the model to produce the compressed
// artifact as JSON matching the specs schema. %s is replaced with the
// session transcript.
const DefaultPromptTemplate = `You are a technical writer compressing an AI coding session into a compact record.

Read the conversation below and respond with a single JSON object with these fields:
- "title": one line naming what the session accomplished
- "summary": a paragraph describing the work, decisions, and outcome
- "tool_digest": (only if tools were used) a short list of notable tool actions
- "file_changes": (only if files were changed) the files created or modified
- "decisions": (optional) key technical decisions made

Respond with JSON only, no surrounding prose.

Conversation:
%s`

// Transcript renders a session as role-prefixed text for prompting,
// truncating head and tail when the result would exceed maxBytes.
func Transcript(sess *session.Session, maxBytes int) string {
	var b strings.Builder
	for _, msg := range sess.Messages {
		fmt.Fprintf(&b, "[%s] %s\n", msg.Role, msg.Content)
		for _, call := range msg.ToolCalls {
			fmt.Fprintf(&b, "  [tool:%s status=%s] input=%s", call.Name, call.Status, session.Truncate(call.Input, 200))
			if call.Output != "" {
				fmt.Fprintf(&b, " output=%s", session.Truncate(call.Output, 200))
			}
			b.WriteString("\n")
		}
	}

	text := b.String()
	if maxBytes <= 0 || len(text) <= maxBytes {
		return text
	}

	// Keep the opening and closing of the conversation; the middle is the
	// least informative part of an overlong transcript.
	head := maxBytes * 2 / 3
	tail := maxBytes - head - len(elision)
	if tail <= 0 {
		// No room for the elision marker; keep the head only.
		return text[:maxBytes]
	}
	return text[:head] + elision + text[len(text)-tail:]
}

const elision = "\n[... transcript truncated ...]\n"
