package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// rawBubble is one message blob from the cursorDiskKV table.
// Keys look like bubbleId:<composerId>:<bubbleId>.
type rawBubble struct {
	BubbleID   string          `json:"bubbleId"`
	ComposerID string          `json:"-"`
	Text       string          `json:"text,omitempty"`
	RichText   string          `json:"richText,omitempty"`
	CodeBlocks []rawCodeBlock  `json:"codeBlocks,omitempty"`
	ToolCalls  []rawToolRecord `json:"toolFormerData,omitempty"`
	Timestamp  int64           `json:"timestamp"`
	Type       int             `json:"type"` // 1=user, 2=assistant
}

type rawCodeBlock struct {
	Language string `json:"language,omitempty"`
	Content  string `json:"content"`
}

// rawToolRecord is a tool invocation embedded in an assistant bubble.
type rawToolRecord struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Status string          `json:"status,omitempty"`
}

// rawComposer is one conversation record from cursorDiskKV.
// Keys look like composerData:<composerId>.
type rawComposer struct {
	ComposerID                  string              `json:"composerId"`
	Name                        string              `json:"name,omitempty"`
	FullConversationHeadersOnly []composerHeader    `json:"fullConversationHeadersOnly,omitempty"`
	Conversation                []composerInlineMsg `json:"conversation,omitempty"`
	CreatedAt                   int64               `json:"createdAt,omitempty"`
	LastUpdatedAt               int64               `json:"lastUpdatedAt,omitempty"`
}

type composerHeader struct {
	BubbleID string `json:"bubbleId"`
	Type     int    `json:"type"`
}

// composerInlineMsg covers older records that carry the conversation inline
// instead of through bubble headers.
type composerInlineMsg struct {
	Type int    `json:"type"`
	Text string `json:"text,omitempty"`
}

func parseRawBubble(key, value string) (*rawBubble, error) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 || parts[0] != "bubbleId" {
		return nil, &SchemaError{Source: CursorSourceName, Unit: key, Err: errors.New("invalid bubbleId key format")}
	}

	var bubble rawBubble
	if err := json.Unmarshal([]byte(value), &bubble); err != nil {
		return nil, &SchemaError{Source: CursorSourceName, Unit: key, Err: fmt.Errorf("failed to parse bubble JSON: %w", err)}
	}

	bubble.ComposerID = parts[1]
	bubble.BubbleID = parts[2]
	return &bubble, nil
}

func parseRawComposer(key, value string) (*rawComposer, error) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 || parts[0] != "composerData" {
		return nil, &SchemaError{Source: CursorSourceName, Unit: key, Err: errors.New("invalid composerData key format")}
	}

	var composer rawComposer
	if err := json.Unmarshal([]byte(value), &composer); err != nil {
		return nil, &SchemaError{Source: CursorSourceName, Unit: key, Err: fmt.Errorf("failed to parse composer JSON: %w", err)}
	}

	composer.ComposerID = parts[1]
	return &composer, nil
}

// bubbleText extracts display text from a bubble: the text field when
// present, otherwise readable fragments of richText, with code blocks
// appended as markdown fences.
func bubbleText(bubble *rawBubble) string {
	var parts []string

	if bubble.Text != "" {
		parts = append(parts, bubble.Text)
	} else if bubble.RichText != "" {
		if txt := richTextFragments(bubble.RichText); txt != "" {
			parts = append(parts, txt)
		}
	}

	for _, cb := range bubble.CodeBlocks {
		if cb.Content != "" {
			parts = append(parts, fmt.Sprintf("```%s\n%s\n```", cb.Language, cb.Content))
		}
	}

	return strings.Join(parts, "\n\n")
}

// richTextFragments pulls the "text" leaves out of Cursor's Lexical-style
// richText JSON without modeling the whole node tree.
func richTextFragments(raw string) string {
	var root map[string]any
	if err := json.Unmarshal([]byte(raw), &root); err != nil {
		return ""
	}
	var parts []string
	var walk func(node any)
	walk = func(node any) {
		switch v := node.(type) {
		case map[string]any:
			if txt, ok := v["text"].(string); ok && strings.TrimSpace(txt) != "" {
				parts = append(parts, txt)
			}
			if children, ok := v["children"].([]any); ok {
				for _, c := range children {
					walk(c)
				}
			}
			if r, ok := v["root"]; ok {
				walk(r)
			}
		case []any:
			for _, c := range v {
				walk(c)
			}
		}
	}
	walk(root)
	return strings.Join(parts, "\n")
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.Unix(0, ms*int64(time.Millisecond))
}
