// Shared HTTP plumbing for the platform adapters: bearer-authenticated JSON
// and form requests with the upstream body preserved on non-2xx responses.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxErrBody caps how much of an upstream error body is kept for diagnostics.
const maxErrBody = 2048

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}

// getJSON performs an authenticated GET and decodes a 2xx JSON body into out.
// Non-2xx responses return *APIError carrying the status and body.
func getJSON(ctx context.Context, client *http.Client, op, rawURL, accessToken string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	return do(client, op, req, out)
}

// postJSON performs an authenticated POST with a JSON body.
func postJSON(ctx context.Context, client *http.Client, op, rawURL, accessToken string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return do(client, op, req, out)
}

// postForm performs an authenticated POST with urlencoded form values.
func postForm(ctx context.Context, client *http.Client, op, rawURL, accessToken string, form url.Values, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	return do(client, op, req, out)
}

func do(client *http.Client, op string, req *http.Request, out any) error {
	resp, err := httpClientOrDefault(client).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return &APIError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
