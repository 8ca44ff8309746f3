package slack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smallbiznis/fieldops/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.slack",
	fx.Provide(NewFromConfig),
)

type Provider interface {
	PostMessage(ctx context.Context, message string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) PostMessage(ctx context.Context, message string) error {
	return nil
}

func NewFromConfig(cfg config.Config) Provider {
	url := strings.TrimSpace(cfg.Notify.SlackWebhookURL)
	if url == "" {
		return &NoOpProvider{}
	}
	return NewWebhook(url)
}

// WebhookProvider posts to a Slack incoming webhook.
type WebhookProvider struct {
	http *resty.Client
	url  string
}

func NewWebhook(url string) *WebhookProvider {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	return &WebhookProvider{http: client, url: url}
}

func (p *WebhookProvider) PostMessage(ctx context.Context, message string) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"text": message}).
		Post(p.url)
	if err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("slack webhook: status %d", resp.StatusCode())
	}
	return nil
}
