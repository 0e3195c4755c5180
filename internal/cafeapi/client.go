package cafeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/cafe-cart/internal/obs"
	"github.com/noah-isme/cafe-cart/internal/resilience"
)

const maxBodyBytes = 4 << 20

// Client calls the café REST API. Every method takes an optional bearer token;
// an empty token sends no Authorization header.
type Client struct {
	BaseURL string
	HTTP    resilience.HTTPClient
}

// New builds a client whose transport is traced with OpenTelemetry.
func New(baseURL string, httpClient resilience.HTTPClient) *Client {
	if httpClient.Client == nil {
		httpClient.Client = &http.Client{}
	}
	base := httpClient.Client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	instrumented := *httpClient.Client
	instrumented.Transport = otelhttp.NewTransport(base,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "cafeapi " + r.Method + " " + r.URL.Path
		}),
	)
	httpClient.Client = &instrumented
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// call performs one request and decodes the response into T. An empty 2xx
// body decodes as true for boolean results. A body carrying only a "detail"
// field is an error regardless of status.
func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any, token string) Result[T] {
	start := time.Now()
	res := doCall[T](ctx, c, method, path, query, body, token)
	if obs.CafeAPIRequestLatency != nil {
		outcome := "ok"
		if !res.IsOk() {
			outcome = "error"
		}
		obs.CafeAPIRequestLatency.WithLabelValues(path, outcome).Observe(obs.DurationMillis(time.Since(start)))
	}
	return res
}

func doCall[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any, token string) Result[T] {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Err[T](&APIError{Detail: "encode request", Cause: err})
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return Err[T](&APIError{Detail: "build request", Cause: err})
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return Err[T](&APIError{Cause: err})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Err[T](&APIError{Status: resp.StatusCode, Cause: fmt.Errorf("read body: %w", err)})
	}
	return decode[T](resp.StatusCode, data)
}

func decode[T any](status int, data []byte) Result[T] {
	ok := status >= 200 && status < 300
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		if !ok {
			return Err[T](&APIError{Status: status, Detail: http.StatusText(status)})
		}
		var v T
		if b, isBool := any(&v).(*bool); isBool {
			*b = true
		}
		return Ok(v)
	}
	if detail, found := errorDetail(trimmed); found {
		if ok {
			status = http.StatusUnprocessableEntity
		}
		return Err[T](&APIError{Status: status, Detail: detail})
	}
	if !ok {
		return Err[T](&APIError{Status: status, Detail: truncate(string(trimmed), 256)})
	}
	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return Err[T](&APIError{Status: status, Detail: "decode response", Cause: err})
	}
	return Ok(v)
}

// errorDetail recognises {"detail": ...} bodies. A non-string detail, such as
// a list of validation errors, is returned as raw JSON.
func errorDetail(data []byte) (string, bool) {
	if data[0] != '{' {
		return "", false
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil || len(body) != 1 {
		return "", false
	}
	raw, found := body["detail"]
	if !found {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(raw), true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
