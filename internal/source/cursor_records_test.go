package source

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRawBubble(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
	}{
		{
			name:  "valid bubble",
			key:   "bubbleId:composer1:bubble1",
			value: `{"text":"hello","timestamp":1000,"type":1}`,
		},
		{
			name:    "wrong key prefix",
			key:     "composerData:composer1",
			value:   `{}`,
			wantErr: true,
		},
		{
			name:    "missing key segment",
			key:     "bubbleId:composer1",
			value:   `{}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			key:     "bubbleId:composer1:bubble1",
			value:   `{broken`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bubble, err := parseRawBubble(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRawBubble() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var schemaErr *SchemaError
				if !errors.As(err, &schemaErr) {
					t.Errorf("parseRawBubble() error = %v, want *SchemaError", err)
				}
				return
			}
			if bubble.ComposerID != "composer1" || bubble.BubbleID != "bubble1" {
				t.Errorf("parseRawBubble() ids = %q/%q, want composer1/bubble1", bubble.ComposerID, bubble.BubbleID)
			}
		})
	}
}

func TestParseRawComposerSchemaError(t *testing.T) {
	_, err := parseRawComposer("composerData:c1", "{broken")
	if err == nil {
		t.Fatal("parseRawComposer() succeeded on malformed JSON")
	}
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("parseRawComposer() error = %v, want *SchemaError", err)
	}
	if schemaErr != nil && schemaErr.Unit != "composerData:c1" {
		t.Errorf("SchemaError unit = %q, want composerData:c1", schemaErr.Unit)
	}
}

func TestBubbleText(t *testing.T) {
	tests := []struct {
		name   string
		bubble rawBubble
		want   string
	}{
		{
			name:   "plain text",
			bubble: rawBubble{Text: "hello"},
			want:   "hello",
		},
		{
			name: "rich text fallback",
			bubble: rawBubble{
				RichText: `{"root":{"children":[{"children":[{"text":"from rich"}]}]}}`,
			},
			want: "from rich",
		},
		{
			name: "text wins over rich text",
			bubble: rawBubble{
				Text:     "plain",
				RichText: `{"root":{"children":[{"text":"rich"}]}}`,
			},
			want: "plain",
		},
		{
			name:   "invalid rich text yields empty",
			bubble: rawBubble{RichText: `not json`},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bubbleText(&tt.bubble); got != tt.want {
				t.Errorf("bubbleText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBubbleTextCodeBlocks(t *testing.T) {
	bubble := rawBubble{
		Text: "see below",
		CodeBlocks: []rawCodeBlock{
			{Language: "go", Content: "func main() {}"},
		},
	}

	got := bubbleText(&bubble)
	if !strings.Contains(got, "```go\nfunc main() {}\n```") {
		t.Errorf("bubbleText() = %q, want fenced code block", got)
	}
	if !strings.HasPrefix(got, "see below") {
		t.Errorf("bubbleText() = %q, want text first", got)
	}
}

func TestMillisToTime(t *testing.T) {
	if got := millisToTime(0); !got.IsZero() {
		t.Errorf("millisToTime(0) = %v, want zero time", got)
	}
	if got := millisToTime(1500); got.UnixMilli() != 1500 {
		t.Errorf("millisToTime(1500).UnixMilli() = %d, want 1500", got.UnixMilli())
	}
}
