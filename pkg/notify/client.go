package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"golang.org/x/time/rate"

	"github.com/cone387/cone/pkg/core"
)

const (
	// DefaultEndpoint is the DingTalk robot send API.
	DefaultEndpoint = "https://oapi.dingtalk.com/robot/send"
	// DefaultMessage is the fixed text Send posts.
	DefaultMessage = "我就是"

	// MessagesPerMinute is the documented per-robot quota.
	MessagesPerMinute = 20

	defaultTimeout = 30 * time.Second
)

// APIError is a response that carried a non-zero errcode.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("robot api error %d: %s", e.Code, e.Message)
}

type textMessage struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

type apiResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Client posts signed messages to the robot endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
	rng        *rand.Rand

	limit    bool
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	sent     int
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the robot send URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClock replaces time.Now when computing signatures.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithRand sets the random source used by SendRandom.
func WithRand(rng *rand.Rand) Option {
	return func(c *Client) {
		c.rng = rng
	}
}

// WithRateLimit makes every send wait until the robot is under its per-minute quota.
func WithRateLimit() Option {
	return func(c *Client) {
		c.limit = true
	}
}

// NewClient creates a notifier client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
		limiters:   make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// NewLimiter returns a limiter matching the per-robot quota.
func NewLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/MessagesPerMinute), MessagesPerMinute)
}

// Send posts DefaultMessage as robot.
func (c *Client) Send(ctx context.Context, robot Robot) error {
	return c.SendText(ctx, robot, DefaultMessage)
}

// SendRandom picks one of robots at random and posts DefaultMessage.
func (c *Client) SendRandom(ctx context.Context, robots []Robot) (Robot, error) {
	robot, err := Pick(robots, c.rng)
	if err != nil {
		return Robot{}, core.E(core.KindConfig, "notify.SendRandom", err)
	}
	return robot, c.Send(ctx, robot)
}

// SendText posts content as a text message. A non-zero errcode in the response
// is returned as an *APIError.
func (c *Client) SendText(ctx context.Context, robot Robot, content string) error {
	const op = "notify.SendText"

	if err := c.wait(ctx, robot); err != nil {
		return core.E(core.KindRemote, op, err)
	}

	msg := textMessage{MsgType: "text"}
	msg.Text.Content = content
	body, err := json.Marshal(msg)
	if err != nil {
		return core.E(core.KindRemote, op, err)
	}

	target, err := c.signedURL(robot)
	if err != nil {
		return core.E(core.KindConfig, op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return core.E(core.KindConfig, op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.E(core.KindRemote, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.E(core.KindRemote, op, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.E(core.KindRemote, op, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw)))
	}

	var result apiResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return core.E(core.KindRemote, op, fmt.Errorf("failed to decode response: %w", err))
	}
	if result.ErrCode != 0 {
		return core.E(core.KindRemote, op, &APIError{Code: result.ErrCode, Message: result.ErrMsg})
	}

	c.mu.Lock()
	c.sent++
	c.mu.Unlock()

	c.logger.Info("message sent", "robot", robot.Name, "content", content)
	return nil
}

// signedURL appends the signed params to the endpoint, keeping any query it already has.
func (c *Client) signedURL(robot Robot) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", c.endpoint, err)
	}
	query := robot.Sign(c.now()).Query()
	if u.RawQuery != "" {
		query = u.RawQuery + "&" + query
	}
	u.RawQuery = query
	return u.String(), nil
}

func (c *Client) wait(ctx context.Context, robot Robot) error {
	if !c.limit {
		return nil
	}
	c.mu.Lock()
	l, ok := c.limiters[robot.Name]
	if !ok {
		l = NewLimiter()
		c.limiters[robot.Name] = l
	}
	c.mu.Unlock()
	return l.Wait(ctx)
}

// ClientState exposes internal state for observability.
type ClientState struct {
	Endpoint  string `json:"endpoint"`
	RateLimit bool   `json:"rate_limit"`
	Limiters  int    `json:"limiters"`
	Sent      int    `json:"sent"`
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ClientState{
		Endpoint:  c.endpoint,
		RateLimit: c.limit,
		Limiters:  len(c.limiters),
		Sent:      c.sent,
	}
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "notifier"
}

var _ introspection.Introspectable = (*Client)(nil)
var _ introspection.Component = (*Client)(nil)
