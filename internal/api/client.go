// Package api is the HTTP client for the remote WhatsApp and OpenAI
// management service. Request and response shapes belong to that service
// and are consumed as-is.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Notifier receives the one-shot success and error toasts the client
// raises. Implementations must not block for long.
type Notifier interface {
	Success(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
}

type nopNotifier struct{}

func (nopNotifier) Success(context.Context, string) {}
func (nopNotifier) Error(context.Context, string)   {}

// Options configures a Client.
type Options struct {
	WhatsAppURL string
	OpenAIURL   string
	Token       string        // optional bearer token
	Timeout     time.Duration // per-request timeout; 0 means none
	HTTPClient  *http.Client  // base client; defaults to http.DefaultClient
	Notifier    Notifier
}

// Client talks to the remote service.
type Client struct {
	whatsappURL string
	openaiURL   string
	http        *http.Client
	notify      Notifier
}

// New creates a Client.
func New(opts Options) *Client {
	base := &http.Client{}
	if opts.HTTPClient != nil {
		cp := *opts.HTTPClient
		base = &cp
	}
	httpClient := base
	if opts.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: opts.Token,
			TokenType:   "Bearer",
		}))
	}
	if opts.Timeout > 0 {
		httpClient.Timeout = opts.Timeout
	}
	n := opts.Notifier
	if n == nil {
		n = nopNotifier{}
	}
	return &Client{
		whatsappURL: strings.TrimRight(opts.WhatsAppURL, "/"),
		openaiURL:   strings.TrimRight(opts.OpenAIURL, "/"),
		http:        httpClient,
		notify:      n,
	}
}

// WithNotifier returns a copy of c that raises toasts through n.
func (c *Client) WithNotifier(n Notifier) *Client {
	cp := *c
	if n == nil {
		n = nopNotifier{}
	}
	cp.notify = n
	return &cp
}

// request is one call to the backend.
type request struct {
	op     string
	method string
	url    string
	query  url.Values
	body   any
}

// do executes req and returns the raw response body. Non-2xx responses
// become *Error with the server's message when it sent one.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	reqID := uuid.NewString()

	target := req.url
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, &Error{Op: req.op, RequestID: reqID, Err: fmt.Errorf("encode body: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, &Error{Op: req.op, RequestID: reqID, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", reqID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &Error{Op: req.op, RequestID: reqID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Op:        req.op,
			Status:    resp.StatusCode,
			Message:   serverMessage(data),
			RequestID: reqID,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: req.op, RequestID: reqID, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}

// decode unmarshals a response body into out. An empty body leaves out
// untouched.
func decode(op string, data []byte, out any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// serverMessage pulls the "message" field out of a JSON body.
func serverMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) != nil {
		return ""
	}
	return body.Message
}

// mutate runs a create/update/delete call: a server message becomes a
// success toast, a failure becomes an error toast and is returned.
func (c *Client) mutate(ctx context.Context, req request) (string, error) {
	data, err := c.do(ctx, req)
	if err != nil {
		c.fail(ctx, err)
		return "", err
	}
	msg := serverMessage(data)
	if msg != "" {
		c.notify.Success(ctx, msg)
	}
	return msg, nil
}

// fail logs err and raises its error toast.
func (c *Client) fail(ctx context.Context, err error) {
	logFailure(err)
	c.notify.Error(ctx, UserMessage(err))
}

func logFailure(err error) {
	if e, ok := err.(*Error); ok && e.RequestID != "" {
		log.Printf("%v (request %s)", err, e.RequestID)
		return
	}
	log.Printf("%v", err)
}

func (c *Client) wa(path string) string { return c.whatsappURL + path }
func (c *Client) ai(path string) string { return c.openaiURL + path }
