// Package generation talks to the external text-to-image API. Failures never
// propagate: the gateway degrades to a deterministic placeholder image.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gosimple/slug"
	"github.com/tidwall/gjson"
)

const (
	DefaultModel   = "dall-e-3"
	DefaultTimeout = 60 * time.Second
	imageSize      = "1024x1024"
	fallbackSeed   = "image"
)

var errNoImage = errors.New("response carried no image url")

type Result struct {
	ImageURL   string
	IsFallback bool
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gateway is what the image service depends on.
type Gateway interface {
	Generate(ctx context.Context, prompt string) Result
}

type Client struct {
	http  *resty.Client
	model string
	key   string
}

func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		c.SetAuthToken(cfg.APIKey)
	}
	return &Client{http: c, model: cfg.Model, key: cfg.APIKey}
}

func (c *Client) Generate(ctx context.Context, prompt string) Result {
	if c.key == "" {
		slog.DebugContext(ctx, "generation api key not set, using fallback")
		return Fallback(prompt)
	}
	url, err := c.request(ctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "image generation failed, using fallback", "err", err)
		return Fallback(prompt)
	}
	return Result{ImageURL: url}
}

func (c *Client) request(ctx context.Context, prompt string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"model":  c.model,
			"prompt": prompt,
			"n":      1,
			"size":   imageSize,
		}).
		Post("/images/generations")
	if err != nil {
		return "", fmt.Errorf("post generation request: %w", err)
	}
	if resp.IsError() {
		msg := gjson.GetBytes(resp.Body(), "error.message").String()
		return "", fmt.Errorf("generation api status %d: %s", resp.StatusCode(), msg)
	}
	url := gjson.GetBytes(resp.Body(), "data.0.url").String()
	if url == "" {
		return "", errNoImage
	}
	return url, nil
}

// Fallback returns the placeholder for prompt. The same prompt always maps to
// the same URL.
func Fallback(prompt string) Result {
	seed := slug.Make(prompt)
	if seed == "" {
		seed = fallbackSeed
	}
	return Result{
		ImageURL:   fmt.Sprintf("https://picsum.photos/seed/%s/1024/1024", seed),
		IsFallback: true,
	}
}
