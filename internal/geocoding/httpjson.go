package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned when a provider answers with an unexpected HTTP status.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.Code, e.Body)
}

// jsonRequest describes a single GET against a JSON geocoding endpoint.
type jsonRequest struct {
	provider string
	baseURL  string
	query    url.Values
	header   http.Header
}

// getJSON executes the request and decodes the body into out.
// 401 and 403 are reported as ErrUnauthorized; any other non-200 status as *StatusError.
func getJSON(ctx context.Context, client HTTPClient, log *slog.Logger, jr jsonRequest, out any) error {
	reqURL, err := url.Parse(jr.baseURL)
	if err != nil {
		return fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	for key, values := range jr.query {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range jr.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute geocoding request: %w", redactURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w", jr.provider, ErrUnauthorized)
	default:
		log.ErrorContext(ctx, "Geocoding API error", "provider", jr.provider, "status", resp.StatusCode, "body", string(body))
		return &StatusError{Provider: jr.provider, Code: resp.StatusCode, Body: string(body)}
	}

	log.DebugContext(ctx, "Geocoding raw response", "provider", jr.provider, "body", string(body))

	if err = json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", jr.provider, err)
	}

	return nil
}

// redactedError reports msg, which has the query string removed, and unwraps
// to the redacted *url.Error.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }

// redactURL removes the query string from the request URL carried by a
// *url.Error. Providers send the credential as a query parameter and
// net/http puts the full URL into transport errors.
func redactURL(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}

	clean := stripQuery(urlErr.URL)
	if clean == urlErr.URL {
		return err
	}

	redacted := &url.Error{Op: urlErr.Op, URL: clean, Err: urlErr.Err}
	if err == error(urlErr) {
		return redacted
	}

	return &redactedError{msg: strings.ReplaceAll(err.Error(), urlErr.URL, clean), err: redacted}
}

func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.User = nil

	return u.String()
}
