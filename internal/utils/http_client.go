package utils

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/openwork-hackathon/team-clawctor/pkg/logger"

	"go.uber.org/zap"
)

const maxLoggedBody = 2000

// LoggingTransport implements http.RoundTripper and logs requests and responses
type LoggingTransport struct {
	Transport http.RoundTripper
	// LogBodies includes request and response bodies, truncated, in the debug log.
	LogBodies bool
}

// RoundTrip executes a single HTTP transaction and logs the request and response
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
	}
	if t.LogBodies && req.Body != nil {
		bodyBytes, _ := io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes)) // Restore body
		fields = append(fields, zap.String("request_body", truncateBody(bodyBytes)))
	}

	start := time.Now()

	transport := t.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	resp, err := transport.RoundTrip(req)

	fields = append(fields, zap.Duration("duration", time.Since(start)))
	if err != nil {
		logger.Log.Warn("Outbound HTTP request failed", append(fields, zap.Error(err))...)
		return nil, err
	}

	fields = append(fields, zap.Int("status", resp.StatusCode))
	if t.LogBodies && resp.Body != nil {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewBuffer(bodyBytes)) // Restore body
		fields = append(fields, zap.String("response_body", truncateBody(bodyBytes)))
	}

	if resp.StatusCode >= 400 {
		logger.Log.Warn("Outbound HTTP response", fields...)
	} else {
		logger.Log.Debug("Outbound HTTP response", fields...)
	}
	return resp, nil
}

func truncateBody(b []byte) string {
	if len(b) == 0 {
		return "empty"
	}
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "...(truncated)"
	}
	return string(b)
}

// NewHTTPClient returns a new http.Client with logging enabled
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &LoggingTransport{
			Transport: http.DefaultTransport,
		},
	}
}
