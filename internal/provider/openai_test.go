package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anyspecs/anyspecs/internal/config"
	"github.com/anyspecs/anyspecs/internal/session"
)

func testSession(id string) *session.Session {
	return &session.Session{
		ID:     id,
		Source: "cursor",
		Messages: []session.Message{
			{Role: session.RoleUser, Content: "fix the login bug"},
			{Role: session.RoleAssistant, Content: "The null check was missing."},
		},
	}
}

func openAIConfig(baseURL string) *config.ProviderConfig {
	return &config.ProviderConfig{
		Provider:    "kimi",
		APIKey:      "test-key",
		Model:       "test-model",
		BaseURL:     baseURL,
		Temperature: 0.3,
		MaxTokens:   512,
	}
}

func completionBody(content string) string {
	return `{"choices":[{"message":{"content":` + string(mustJSON(content)) + `}}]}`
}

func mustJSON(v interface{}) []byte {
	data, _ := json.Marshal(v)
	return data
}

func TestOpenAICompress(t *testing.T) {
	var gotAuth string
	var gotPath string
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody(`{"title":"t","summary":"s"}`)))
	}))
	defer server.Close()

	client := newOpenAIClient(openAIConfig(server.URL))
	sess := testSession("s1")

	got, err := client.Compress(context.Background(), sess, DefaultPromptTemplate, Options{})
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if !strings.Contains(got, `"title":"t"`) {
		t.Errorf("Compress() = %q, want the completion content", got)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want Bearer test-key", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q, want /chat/completions", gotPath)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("request model = %q, want test-model", gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || !strings.Contains(gotReq.Messages[0].Content, "fix the login bug") {
		t.Errorf("prompt does not carry the transcript: %+v", gotReq.Messages)
	}
}

func TestOpenAIErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				var authErr *AuthenticationError
				if !errors.As(err, &authErr) {
					t.Errorf("error = %v, want *AuthenticationError", err)
				}
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				var authErr *AuthenticationError
				if !errors.As(err, &authErr) {
					t.Errorf("error = %v, want *AuthenticationError", err)
				}
			},
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				var rateErr *RateLimitError
				if !errors.As(err, &rateErr) {
					t.Errorf("error = %v, want *RateLimitError", err)
				}
			},
		},
		{
			name:   "gateway timeout",
			status: http.StatusGatewayTimeout,
			check: func(t *testing.T, err error) {
				var timeoutErr *TimeoutError
				if !errors.As(err, &timeoutErr) {
					t.Errorf("error = %v, want *TimeoutError", err)
				}
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var invErr *InvalidResponseError
				if !errors.As(err, &invErr) {
					t.Errorf("error = %v, want *InvalidResponseError", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newOpenAIClient(openAIConfig(server.URL))
			_, err := client.Compress(context.Background(), testSession("s1"), DefaultPromptTemplate, Options{})
			if err == nil {
				t.Fatal("Compress() succeeded, want error")
			}
			tt.check(t, err)
		})
	}
}

func TestOpenAIInvalidCompletions(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "<html>oops</html>"},
		{name: "no choices", body: `{"choices":[]}`},
		{name: "empty content", body: completionBody("  ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newOpenAIClient(openAIConfig(server.URL))
			_, err := client.Compress(context.Background(), testSession("s1"), DefaultPromptTemplate, Options{})

			var invErr *InvalidResponseError
			if !errors.As(err, &invErr) {
				t.Errorf("error = %v, want *InvalidResponseError", err)
			}
		})
	}
}

func TestOpenAIDryRun(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := newOpenAIClient(openAIConfig(server.URL))
	payload, err := client.Compress(context.Background(), testSession("s1"), DefaultPromptTemplate, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Compress(DryRun) error = %v", err)
	}
	if calls != 0 {
		t.Errorf("dry run made %d network calls, want 0", calls)
	}

	// The payload is the exact request that would have been sent.
	var req chatRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		t.Fatalf("dry run payload is not valid JSON: %v", err)
	}
	if req.Model != "test-model" || req.MaxTokens != 512 {
		t.Errorf("payload = %+v, want resolved model and max_tokens", req)
	}
}

func TestMinimaxEndpoint(t *testing.T) {
	var gotURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		_, _ = w.Write([]byte(completionBody("ok")))
	}))
	defer server.Close()

	cfg := &config.ProviderConfig{
		Provider: "minimax",
		APIKey:   "k",
		Model:    "MiniMax-Text-01",
		BaseURL:  server.URL,
		GroupID:  "group 42",
	}
	client := newMinimaxClient(cfg)

	if !client.Capabilities().RequiresGroupID {
		t.Error("minimax capabilities should require a group id")
	}

	_, err := client.Compress(context.Background(), testSession("s1"), DefaultPromptTemplate, Options{})
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if !strings.HasPrefix(gotURL, "/text/chatcompletion_v2?GroupId=group+42") {
		t.Errorf("request URL = %q, want the GroupId query parameter", gotURL)
	}
}

func TestTranscriptTruncation(t *testing.T) {
	sess := testSession("s1")
	sess.Messages[0].Content = strings.Repeat("x", 4096)

	full := Transcript(sess, 0)
	if len(full) < 4096 {
		t.Fatalf("unlimited transcript too short: %d", len(full))
	}

	capped := Transcript(sess, 1024)
	if len(capped) > 1024 {
		t.Errorf("capped transcript is %d bytes, want <= 1024", len(capped))
	}
	if !strings.Contains(capped, "transcript truncated") {
		t.Error("capped transcript should carry the elision marker")
	}
	if !strings.HasPrefix(capped, full[:100]) {
		t.Error("capped transcript should keep the head of the conversation")
	}
	if !strings.HasSuffix(capped, full[len(full)-50:]) {
		t.Error("capped transcript should keep the tail of the conversation")
	}
}

func TestTranscriptTinyLimit(t *testing.T) {
	sess := testSession("s1")
	sess.Messages[0].Content = strings.Repeat("x", 512)
	full := Transcript(sess, 0)

	// Limits too small to fit the elision marker fall back to a plain
	// head truncation.
	for _, max := range []int{1, 16, 64} {
		got := Transcript(sess, max)
		if len(got) != max {
			t.Errorf("Transcript(max=%d) = %d bytes, want %d", max, len(got), max)
		}
		if got != full[:max] {
			t.Errorf("Transcript(max=%d) should be a prefix of the full transcript", max)
		}
	}
}
