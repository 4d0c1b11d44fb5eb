package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/anyspecs/anyspecs/internal/config"
	"github.com/anyspecs/anyspecs/internal/session"
)

// minimaxClient wraps the OpenAI-compatible transport with MiniMax's
// account addressing: every request must carry the account's GroupId.
type minimaxClient struct {
	*openAIClient
}

func newMinimaxClient(cfg *config.ProviderConfig) *minimaxClient {
	inner := newOpenAIClient(cfg)
	inner.maxInput = 96 * 1024
	return &minimaxClient{openAIClient: inner}
}

func (c *minimaxClient) Capabilities() Capabilities {
	return Capabilities{RequiresGroupID: true, MaxInputBytes: c.maxInput}
}

func (c *minimaxClient) Compress(ctx context.Context, sess *session.Session, promptTemplate string, opts Options) (string, error) {
	payload, err := c.buildPayload(sess, promptTemplate)
	if err != nil {
		return "", err
	}

	if opts.DryRun {
		return string(payload), nil
	}

	endpoint := fmt.Sprintf("%s/text/chatcompletion_v2?GroupId=%s",
		strings.TrimSuffix(c.cfg.BaseURL, "/"), url.QueryEscape(c.cfg.GroupID))
	body, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return "", err
	}
	return c.parseCompletion(body)
}
