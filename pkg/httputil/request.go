package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Request describes one JSON call made through DoJSON
type Request struct {
	Service string
	Op      string
	Method  string
	URL     string
	// Body is JSON encoded when non-nil
	Body   interface{}
	Header http.Header
}

// DoJSON executes req with client and decodes a successful response into dest.
// dest may be nil when the response body is not needed.
func DoJSON(ctx context.Context, client *http.Client, req Request, dest interface{}) error {
	httpReq, err := newRequest(ctx, req)
	if err != nil {
		return &Error{Service: req.Service, Op: req.Op, Kind: KindValidation, Err: err}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return &Error{Service: req.Service, Op: req.Op, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	return decodeResponse(resp, req.Service, req.Op, dest)
}

func newRequest(ctx context.Context, req Request) (*http.Request, error) {
	var body *bytes.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	var httpReq *http.Request
	var err error
	if body != nil {
		httpReq, err = http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return httpReq, nil
}
