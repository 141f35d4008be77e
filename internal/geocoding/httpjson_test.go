package geocoding_test

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// mockHTTPClient is a mock implementation of HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

// respondWith returns a client that answers every request with the given status and body.
func respondWith(status int, body string) *mockHTTPClient {
	return &mockHTTPClient{
		doFunc: func(_ *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(bytes.NewBufferString(body)),
			}, nil
		},
	}
}

// failingTransport makes http.Client return the *url.Error it builds for
// network failures, which carries the full request URL.
type failingTransport struct{}

func (failingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return nil, errors.New("dial tcp: lookup " + req.URL.Hostname() + ": no such host")
}

func offlineClient() *http.Client {
	return &http.Client{Transport: failingTransport{}}
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
