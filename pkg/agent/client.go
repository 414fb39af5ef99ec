package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultChatPath    = "/chat"
	DefaultSessionPath = "/session/start"

	RequestIDHeader = "X-Request-Id"
)

// ChatRequest is the JSON body posted to the chat endpoint.
type ChatRequest struct {
	Prompt string `json:"prompt"`
	Model  Model  `json:"model"`
}

// StatusError is returned when the agent answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d (%s)", e.StatusCode, e.Endpoint)
}

// Client talks to the remote agent. All requests share one cookie jar, so the
// cookie handed out by the session endpoint rides along on chat requests.
type Client struct {
	baseURL     *url.URL
	chatPath    string
	sessionPath string
	httpClient  *http.Client
	logger      zerolog.Logger
}

type ClientOption func(*Client) error

// WithHTTPClient replaces the default client. A nil Jar gets a fresh cookie jar.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) error {
		if c == nil {
			return errors.New("http client cannot be nil")
		}
		client.httpClient = c
		return nil
	}
}

func WithChatPath(p string) ClientOption {
	return func(client *Client) error {
		client.chatPath = p
		return nil
	}
}

func WithSessionPath(p string) ClientOption {
	return func(client *Client) error {
		client.sessionPath = p
		return nil
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(client *Client) error {
		client.logger = logger
		return nil
	}
}

// NewClient creates a client for the agent rooted at baseURL.
func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid base url %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("base url %q must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, errors.Errorf("base url %q has no host", baseURL)
	}

	client := &Client{
		baseURL:     u,
		chatPath:    DefaultChatPath,
		sessionPath: DefaultSessionPath,
		logger:      log.Logger.With().Str("component", "agent-client").Logger(),
	}

	for _, opt := range options {
		if err := opt(client); err != nil {
			return nil, errors.Wrap(err, "failed to apply client option")
		}
	}

	if client.httpClient == nil {
		client.httpClient = NewHTTPClient()
	}
	if client.httpClient.Jar == nil {
		jar, err := NewCookieJar()
		if err != nil {
			return nil, err
		}
		client.httpClient.Jar = jar
	}

	return client, nil
}

// NewHTTPClient returns a client without an overall timeout: a chat request
// is allowed to take as long as the agent needs.
func NewHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 10
	transport.MaxIdleConnsPerHost = 2
	transport.IdleConnTimeout = 90 * time.Second
	return &http.Client{Transport: transport}
}

func NewCookieJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}
	return jar, nil
}

func (c *Client) resolve(p string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(p, "/")
	return u.String()
}

// Endpoint is the chat URL, used in user-facing error messages.
func (c *Client) Endpoint() string {
	return c.resolve(c.chatPath)
}

func (c *Client) SessionEndpoint() string {
	return c.resolve(c.sessionPath)
}

// Cookies returns the cookies currently held for the agent's base URL.
func (c *Client) Cookies() []*http.Cookie {
	if c.httpClient.Jar == nil {
		return nil
	}
	return c.httpClient.Jar.Cookies(c.baseURL)
}

// Chat posts one prompt and returns the raw reply body. The body may be empty;
// interpreting an empty reply is up to the caller.
func (c *Client) Chat(ctx context.Context, prompt string, model Model) (string, error) {
	body, err := json.Marshal(ChatRequest{Prompt: prompt, Model: model})
	if err != nil {
		return "", errors.Wrap(err, "marshal chat request")
	}

	endpoint := c.Endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build chat request")
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	logger := c.logger.With().
		Str("request_id", requestID).
		Str("model", string(model)).
		Logger()
	logger.Debug().Str("endpoint", endpoint).Int("prompt_length", len(prompt)).Msg("posting chat request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "post %s", endpoint)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Endpoint: endpoint}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read chat response")
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Int("reply_length", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("chat request completed")

	return string(data), nil
}

// StartSession asks the agent to create a server-side session. The response
// body is discarded; only the cookies it sets matter.
func (c *Client) StartSession(ctx context.Context) error {
	endpoint := c.SessionEndpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "build session request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "get %s", endpoint)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Endpoint: endpoint}
	}
	return nil
}
