package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// HTTPClientConfig holds the retry settings used to fetch remote extracts
type HTTPClientConfig struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
	Log          zerolog.Logger
}

// HTTPClient downloads extracts published over HTTP
type HTTPClient struct {
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPClient creates a retrying HTTP client
func NewHTTPClient(config HTTPClientConfig) *HTTPClient {
	log := config.Log.With().Str("component", "http_source").Logger()

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = config.RetryMax
	if config.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = config.RetryWaitMin
	}
	if config.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = config.RetryWaitMax
	}
	retryClient.HTTPClient = &http.Client{
		Timeout: config.Timeout,
	}
	retryClient.Logger = retryLogger{log: log}

	return &HTTPClient{
		httpClient: retryClient.StandardClient(),
		log:        log,
	}
}

// Fetch downloads the body of uri, failing on non-2xx responses
func (c *HTTPClient) Fetch(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/plain, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server returned error status %d for %s", resp.StatusCode, uri)
	}

	c.log.Debug().
		Str("url", uri).
		Int("bytes", len(body)).
		Msg("Fetched remote extract")

	return body, nil
}

// HTTPSource is an extract published at a URL
type HTTPSource struct {
	name   string
	uri    string
	loader *Loader
	client *HTTPClient
}

// NewHTTPSource creates a source for a remote extract
func NewHTTPSource(name, uri string, loader *Loader, client *HTTPClient) *HTTPSource {
	return &HTTPSource{name: name, uri: uri, loader: loader, client: client}
}

func (s *HTTPSource) Name() string { return s.name }

func (s *HTTPSource) Load(ctx context.Context) (*Table, error) {
	if s.client == nil {
		return nil, fmt.Errorf("no HTTP client configured for %s", s.uri)
	}
	payload, err := s.client.Fetch(ctx, s.uri)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s extract: %w", s.name, err)
	}
	return s.loader.Parse(s.name, payload)
}

// retryLogger adapts zerolog to retryablehttp.LeveledLogger
type retryLogger struct {
	log zerolog.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Trace().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}
