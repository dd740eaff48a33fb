package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Handler processes backoffice requests. Middlewares wrap a core Handler
// to add timeouts, retries, rate limits and logging.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware transforms a Handler into an enhanced Handler.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around h. The first middleware is
// outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Credentials decorates outgoing HTTP requests with authentication.
type Credentials interface {
	Apply(req *http.Request)
}

// BearerToken is a static bearer credential.
type BearerToken string

// Apply implements Credentials.
func (t BearerToken) Apply(req *http.Request) {
	if t != "" {
		req.Header.Set("Authorization", "Bearer "+string(t))
	}
}

// IdempotencyHeader carries Request.IdempotencyKey to the backoffice.
const IdempotencyHeader = "Idempotency-Key"

// maxResponseBytes caps how much of a reply is read.
const maxResponseBytes = 8 << 20

// NewGraphQLHandler creates the core handler posting to endpoint.
func NewGraphQLHandler(client *http.Client, endpoint string, creds Credentials) Handler {
	if client == nil {
		client = http.DefaultClient
	}
	return &graphQLHandler{client: client, endpoint: endpoint, creds: creds}
}

type graphQLHandler struct {
	client   *http.Client
	endpoint string
	creds    Credentials
}

type graphQLBody struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type graphQLReply struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string `json:"message"`
		Extensions struct {
			Code string `json:"code"`
		} `json:"extensions"`
	} `json:"errors"`
}

// Handle implements Handler.
func (h *graphQLHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(graphQLBody{
		OperationName: string(req.Operation),
		Query:         req.Query,
		Variables:     req.Variables,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set(IdempotencyHeader, req.IdempotencyKey)
	}
	if req.TraceID != "" {
		httpReq.Header.Set("X-Trace-Id", req.TraceID)
	}
	if h.creds != nil {
		h.creds.Apply(httpReq)
	}

	start := time.Now()
	httpResp, err := h.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode >= http.StatusBadRequest {
		return nil, NewHTTPError(req.Operation, httpResp.StatusCode, httpResp.Header.Get("Retry-After"), raw)
	}

	var reply graphQLReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, &ServiceError{
			Operation:  req.Operation,
			Type:       ErrorTypeInvalidResponse,
			StatusCode: httpResp.StatusCode,
			Message:    "malformed reply: " + err.Error(),
		}
	}
	if len(reply.Errors) > 0 {
		first := reply.Errors[0]
		return nil, &ServiceError{
			Operation:  req.Operation,
			Type:       classifyGraphQLCode(first.Extensions.Code),
			StatusCode: httpResp.StatusCode,
			Code:       first.Extensions.Code,
			Message:    first.Message,
		}
	}

	return &Response{
		Data:       reply.Data,
		StatusCode: httpResp.StatusCode,
		LatencyMs:  latency.Milliseconds(),
	}, nil
}
