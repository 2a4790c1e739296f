package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WebhookConfig holds webhook delivery settings loaded from the environment.
type WebhookConfig struct {
	URL        string        `env:"WEBHOOK_URL"`
	Secret     string        `env:"WEBHOOK_SECRET"`
	Timeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`
	MaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`
	RetryBase  time.Duration `env:"WEBHOOK_RETRY_BASE" envDefault:"500ms"`
	RetryMax   time.Duration `env:"WEBHOOK_RETRY_MAX" envDefault:"10s"`
}

// Enabled reports whether a webhook URL is configured.
func (c WebhookConfig) Enabled() bool {
	return c.URL != ""
}

// WebhookPublisher POSTs notifications as JSON, signing them when a secret is set.
type WebhookPublisher struct {
	url     string
	secret  string
	client  *http.Client
	timeout time.Duration
	backoff BackoffFunc
	clock   func() time.Time
}

// WebhookOption configures a WebhookPublisher.
type WebhookOption func(*WebhookPublisher)

func WithHTTPClient(client *http.Client) WebhookOption {
	return func(p *WebhookPublisher) {
		if client != nil {
			p.client = client
		}
	}
}

func WithWebhookBackoff(backoff BackoffFunc) WebhookOption {
	return func(p *WebhookPublisher) {
		if backoff != nil {
			p.backoff = backoff
		}
	}
}

// WithWebhookClock sets the clock used for signature timestamps.
func WithWebhookClock(clock func() time.Time) WebhookOption {
	return func(p *WebhookPublisher) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewWebhookPublisher validates the endpoint URL. Only http and https are accepted.
func NewWebhookPublisher(cfg WebhookConfig, opts ...WebhookOption) (*WebhookPublisher, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfiguration, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Join(ErrInvalidConfiguration, fmt.Errorf("unsupported webhook scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return nil, errors.Join(ErrInvalidConfiguration, errors.New("webhook host is required"))
	}

	p := &WebhookPublisher{
		url:     cfg.URL,
		secret:  cfg.Secret,
		client:  &http.Client{},
		timeout: cfg.Timeout,
		backoff: ExponentialBackoff(cfg.RetryBase, cfg.MaxRetries, cfg.RetryMax),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish delivers n, retrying network errors, 5xx and 408/425/429 responses.
// Other 4xx responses fail immediately.
func (p *WebhookPublisher) Publish(ctx context.Context, n Notification) error {
	payload, err := n.marshal()
	if err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	return doWithRetry(ctx, p.backoff, func(ctx context.Context) error {
		return p.deliver(ctx, n, payload)
	})
}

func (p *WebhookPublisher) deliver(ctx context.Context, n Notification, payload []byte) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "sublife-notifier/1.0")
	req.Header.Set(HeaderEventID, n.EventID.String())
	if p.secret != "" {
		ts := p.clock().Unix()
		req.Header.Set(HeaderTimestamp, fmt.Sprint(ts))
		req.Header.Set(HeaderSignature, Sign(p.secret, ts, payload))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.ReplaceAll(string(body), "\n", " ")
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	statusErr := fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, msg)
	if isPermanentStatus(resp.StatusCode) {
		return Permanent(statusErr)
	}
	return statusErr
}

func isPermanentStatus(code int) bool {
	if code < 400 || code >= 500 {
		return false
	}
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	}
	return true
}
