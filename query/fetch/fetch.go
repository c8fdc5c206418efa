// Package fetch is the HTTP transport behind query.BaseQuery.
package fetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/reoring/postq"
	"github.com/reoring/postq/query"
)

// Option configures the transport.
type Option func(*transport)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(t *transport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(t *transport) { t.header.Add(key, value) }
}

// WithLogger logs each request at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(t *transport) {
		if l != nil {
			t.log = l
		}
	}
}

type transport struct {
	base   string
	client *http.Client
	header http.Header
	log    *zap.Logger
}

// New returns a BaseQuery that resolves Args.URL against baseURL and speaks
// JSON. Non-2xx answers become KindTransport errors carrying the decoded
// body, network failures become FETCH_ERROR and undecodable 2xx bodies
// PARSING_ERROR.
func New(baseURL string, opts ...Option) query.BaseQuery {
	t := &transport{
		base:   strings.TrimRight(baseURL, "/") + "/",
		client: http.DefaultClient,
		header: http.Header{},
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(t)
	}
	return t.do
}

func (t *transport) do(ctx context.Context, args query.Args) query.Result {
	start := time.Now()
	req, err := t.newRequest(ctx, args)
	if err != nil {
		return query.Result{Err: &query.APIError{Kind: query.KindTransport, Code: query.CodeFetchError, Message: err.Error()}}
	}
	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Debug("request failed", zap.String("request", args.Key()), zap.Error(err))
		return query.Result{Err: &query.APIError{Kind: query.KindTransport, Code: query.CodeFetchError, Message: err.Error()}}
	}
	defer resp.Body.Close()

	meta := query.Meta{Status: resp.StatusCode, Header: resp.Header}
	raw, err := io.ReadAll(resp.Body)
	meta.Duration = time.Since(start)
	t.log.Debug("request done",
		zap.String("request", args.Key()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", meta.Duration))
	if err != nil {
		return query.Result{Meta: meta, Err: &query.APIError{Kind: query.KindTransport, Code: query.CodeFetchError, Message: err.Error()}}
	}

	data, decErr := decodeBody(raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decErr != nil {
			data = string(raw)
		}
		return query.Result{Meta: meta, Err: query.TransportError(resp.StatusCode, errorMessage(data, resp.StatusCode), data)}
	}
	if decErr != nil {
		return query.Result{Meta: meta, Err: &query.APIError{Kind: query.KindTransport, Code: query.CodeParsingError, Status: resp.StatusCode, Message: decErr.Error(), Data: string(raw)}}
	}
	return query.Result{Data: data, Meta: meta}
}

func (t *transport) newRequest(ctx context.Context, args query.Args) (*http.Request, error) {
	method := args.Method
	if method == "" {
		method = http.MethodGet
	}
	u := t.base + strings.TrimLeft(args.URL, "/")
	if len(args.Params) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + args.Params.Encode()
	}
	var body io.Reader
	if args.Body != nil {
		b, err := json.Marshal(args.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range t.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// decodeBody decodes JSON in wire form. An empty body decodes to nil.
func decodeBody(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return postq.DecodeAny(raw)
}

func errorMessage(data any, status int) string {
	if m, ok := data.(map[string]any); ok {
		if s, ok := m["error"].(string); ok && s != "" {
			return s
		}
		if s, ok := m["message"].(string); ok && s != "" {
			return s
		}
	}
	return http.StatusText(status)
}
