package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/mcuadros/go-defaults"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/stepflow/types"
)

const (
	ActionGetCustomer = "GetCustomer"
	ActionGetOrder    = "GetOrder"

	netoPath = "/do/WS/NetoAPI"

	headerAction   = "NETOAPI_ACTION"
	headerUsername = "NETOAPI_USERNAME"
	headerKey      = "NETOAPI_KEY"

	maxResponseBody = 10 * 1024 * 1024
)

// Config holds what the Neto steps need to reach the store API. It is read
// once at construction; steps never look at the environment themselves.
type Config struct {
	Hostname string `yaml:"hostname"`
	User     string `yaml:"user"`
	Key      string `yaml:"key"`

	// BaseURL replaces https://{Hostname} when set, e.g. for a local fake.
	BaseURL string `yaml:"base_url"`

	Timeout      time.Duration `yaml:"timeout" default:"10s"`
	RetryBackoff time.Duration `yaml:"retry_backoff" default:"1s"`

	// CustomerLabel is the Customer value AggregateResult writes.
	CustomerLabel string `yaml:"customer_label" default:"test"`

	HTTPClient *http.Client `yaml:"-"`
}

func (c *Config) endpoint() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/") + netoPath
	}
	return "https://" + c.Hostname + netoPath
}

func (c *Config) Validate() error {
	if c.Hostname == "" && c.BaseURL == "" {
		return errors.NotValidf("empty neto hostname")
	}
	if c.User == "" {
		return errors.NotValidf("empty neto user")
	}
	if c.Key == "" {
		return errors.NotValidf("empty neto key")
	}
	return nil
}

// Client talks to the Neto web service. Every call is a POST of a
// {"Filter": ...} document with the action named in a header.
type Client struct {
	config Config
	client *http.Client
}

func NewClient(config Config) (*Client, error) {
	defaults.SetDefaults(&config)
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &Client{config: config, client: client}, nil
}

func (c *Client) Config() Config {
	return c.config
}

// netoResponse is the part of a Neto reply every action shares.
type netoResponse struct {
	Ack      string `json:"Ack"`
	Messages any    `json:"Messages,omitempty"`
}

/**
 * Call posts filter under action and decodes the reply into out.
 * Transport failures, 429 and 5xx replies come back as RetryError so the
 * calling layer may re-run the workflow; anything else is permanent.
 */
func (c *Client) Call(ctx context.Context, action string, filter any, out any) error {
	body, err := json.Marshal(map[string]any{"Filter": filter})
	if err != nil {
		return errors.Annotatef(err, "marshal %s filter", action)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.endpoint(), bytes.NewReader(body))
	if err != nil {
		return errors.Annotatef(err, "create %s request", action)
	}
	req.Header.Set(headerAction, action)
	req.Header.Set(headerUsername, c.config.User)
	req.Header.Set(headerKey, c.config.Key)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Annotatef(ctx.Err(), "%s request", action)
		}
		return types.NewRetryError(errors.Annotatef(err, "%s request", action), c.config.RetryBackoff)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return types.NewRetryError(errors.Annotatef(err, "read %s response", action), c.config.RetryBackoff)
	}
	log.Debugf("neto %s answered %d in %s", action, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return types.NewRetryErrorf(c.config.RetryBackoff, "%s returned %d", action, resp.StatusCode)
	case resp.StatusCode >= 300:
		return errors.Errorf("%s returned %d: %s", action, resp.StatusCode, truncate(string(raw), 256))
	}

	var ack netoResponse
	if err := json.Unmarshal(raw, &ack); err != nil {
		return errors.Annotatef(err, "decode %s response", action)
	}
	if strings.EqualFold(ack.Ack, "Error") || strings.EqualFold(ack.Ack, "Failure") {
		return errors.Errorf("%s rejected: %v", action, ack.Messages)
	}
	if out == nil {
		return nil
	}
	return errors.Annotatef(json.Unmarshal(raw, out), "decode %s response", action)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
