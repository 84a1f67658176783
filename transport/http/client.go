// Package http is the client side of the backend REST API: a Client that
// speaks the {code, data, message} envelope and an AuthTransport that attaches
// the bearer token and recovers expired sessions.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/layer-3/dicer/core"
)

// Client performs requests against the backend and unwraps response envelopes
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient creates a Client resolving paths against baseURL
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q is not absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    u,
		httpClient: httpClient,
	}, nil
}

// BaseURL returns the URL paths are resolved against
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// ResolvePath returns the URL path a request to path is sent to
func (c *Client) ResolvePath(path string) string {
	return resolvePath(c.baseURL, path)
}

func resolvePath(baseURL *url.URL, path string) string {
	if ref, err := url.Parse(path); err == nil {
		path = ref.Path
	}
	if baseURL == nil {
		return path
	}
	return baseURL.JoinPath(path).Path
}

// Response is a decoded backend response
type Response struct {
	Status   int
	Header   http.Header
	Envelope core.Envelope
}

// FormFile is a file part of a multipart Form
type FormFile struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Form is a multipart/form-data request body
type Form struct {
	Fields map[string]string
	Files  []FormFile
}

// Do sends a request and decodes the envelope data into out, which may be nil
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.Send(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Send sends a request and returns the decoded envelope.
// Non-2xx statuses and non-OK codes are returned as *core.APIError.
func (c *Client) Send(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", core.ErrRequestFailed, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", core.ErrRequestFailed, method, path, err)
	}

	var envelope core.Envelope
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &envelope); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("failed to decode %s %s envelope: %w", method, path, err)
		}
	} else if resp.StatusCode < 300 {
		envelope.Code = core.CodeOK
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.OK() {
		return nil, &core.APIError{
			Status:  resp.StatusCode,
			Code:    envelope.Code,
			Message: envelope.Message,
		}
	}

	return &Response{
		Status:   resp.StatusCode,
		Header:   resp.Header,
		Envelope: envelope,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	target := c.baseURL.JoinPath(ref.Path)
	target.RawQuery = ref.RawQuery

	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case *Form:
		buf, ct, err := encodeForm(b)
		if err != nil {
			return nil, err
		}
		reader, contentType = buf, ct
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// encodeForm writes form as multipart. The content type carries the writer's boundary.
func encodeForm(form *Form) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	for name, value := range form.Fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", name, err)
		}
	}
	for _, file := range form.Files {
		w, err := mw.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file %s: %w", file.Field, err)
		}
		if _, err := io.Copy(w, file.Content); err != nil {
			return nil, "", fmt.Errorf("failed to write form file %s: %w", file.Field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}
