package networking

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nightshade/scanner/internal/config"
	"github.com/nightshade/scanner/internal/utils"
)

// Client manages HTTP requests to scan targets, with retries, per-domain
// pacing, proxy rotation and global custom headers. Delivery of compiled
// payloads to targets goes through here; polling the callback collector does
// not.
type Client struct {
	baseClient       *http.Client
	config           *config.Config
	logger           utils.Logger
	throttle         *Throttle
	defaultTransport *http.Transport

	proxyLock        sync.Mutex
	parsedProxies    []*url.URL
	domainProxyIndex map[string]int
}

// ClientRequestData encapsulates all necessary data for making a request.
type ClientRequestData struct {
	URL            string
	Method         string
	Body           string
	RequestHeaders http.Header // headers specific to this request
	Ctx            context.Context
}

// ClientResponseData holds the outcome of an HTTP request.
type ClientResponseData struct {
	Response    *http.Response
	Body        []byte
	RespHeaders http.Header
	Error       error
}

// NewClient creates a new HTTP Client with the specified configuration.
func NewClient(cfg *config.Config, logger utils.Logger) (*Client, error) {
	baseTransport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	var proxies []*url.URL
	for _, raw := range cfg.Proxies {
		proxyURL, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL '%s': %w", raw, err)
		}
		proxies = append(proxies, proxyURL)
	}

	c := &Client{
		config:           cfg,
		logger:           logger,
		throttle:         NewThrottle(cfg.RequestsPerSecond, logger),
		defaultTransport: baseTransport,
		parsedProxies:    proxies,
		domainProxyIndex: make(map[string]int),
	}

	c.baseClient = &http.Client{
		Transport: c.defaultTransport,
		Timeout:   cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse // always return the response itself, not the redirect target
		},
	}

	return c, nil
}

// getProxyForDomain selects a proxy for a target domain using round-robin per
// domain.
func (c *Client) getProxyForDomain(targetDomain string) *url.URL {
	c.proxyLock.Lock()
	defer c.proxyLock.Unlock()

	if len(c.parsedProxies) == 0 {
		return nil
	}

	currentIndex, exists := c.domainProxyIndex[targetDomain]
	if exists {
		currentIndex = (currentIndex + 1) % len(c.parsedProxies)
	}
	c.domainProxyIndex[targetDomain] = currentIndex
	return c.parsedProxies[currentIndex]
}

// PerformRequest executes an HTTP request with retry and backoff. The retry
// delay grows exponentially from RetryDelayBaseMs, capped at RetryDelayMaxMs.
func (c *Client) PerformRequest(reqData ClientRequestData) ClientResponseData {
	var finalRespData ClientResponseData

	ctx := reqData.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	method := reqData.Method
	if method == "" {
		method = http.MethodGet
	}

	if err := c.throttle.Wait(ctx, reqData.URL); err != nil {
		finalRespData.Error = fmt.Errorf("request to %s aborted while throttled: %w", reqData.URL, err)
		return finalRespData
	}

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		req, errBuildReq := http.NewRequestWithContext(ctx, method, reqData.URL, strings.NewReader(reqData.Body))
		if errBuildReq != nil {
			finalRespData.Error = fmt.Errorf("failed to build request for %s: %w", reqData.URL, errBuildReq)
			return finalRespData
		}

		req.Header.Set("User-Agent", c.config.UserAgent)

		if reqData.RequestHeaders != nil {
			for key, values := range reqData.RequestHeaders {
				for _, value := range values {
					req.Header.Add(key, value)
				}
			}
		}

		// Global custom headers apply only where the request didn't set them.
		for _, headerStr := range c.config.CustomHeaders {
			parts := strings.SplitN(headerStr, ":", 2)
			if len(parts) == 2 {
				headerName := strings.TrimSpace(parts[0])
				headerValue := strings.TrimSpace(parts[1])
				if req.Header.Get(headerName) == "" {
					req.Header.Set(headerName, headerValue)
				}
			}
		}

		currentHTTPClient := c.baseClient
		if len(c.parsedProxies) > 0 {
			if proxyURL := c.getProxyForDomain(req.URL.Hostname()); proxyURL != nil {
				proxiedTransport := c.defaultTransport.Clone()
				proxiedTransport.Proxy = http.ProxyURL(proxyURL)
				currentHTTPClient = &http.Client{
					Transport:     proxiedTransport,
					Timeout:       c.config.RequestTimeout,
					CheckRedirect: c.baseClient.CheckRedirect,
				}
				c.logger.Debugf("Using proxy %s for request to %s", proxyURL, reqData.URL)
			}
		}

		resp, err := currentHTTPClient.Do(req)
		if err != nil {
			finalRespData.Error = fmt.Errorf("failed to execute request for %s (attempt %d/%d): %w",
				reqData.URL, attempt+1, c.config.MaxRetries+1, err)
			if ctx.Err() != nil {
				// Cancelled or deadline exceeded: retrying cannot help.
				return finalRespData
			}
			if attempt == c.config.MaxRetries {
				return finalRespData
			}
			c.sleepBeforeRetry(ctx, attempt)
			continue
		}

		bodyBytes, errReadBody := io.ReadAll(resp.Body)
		resp.Body.Close()
		if errReadBody != nil {
			finalRespData.Error = fmt.Errorf("failed to read response body for %s (attempt %d/%d): %w",
				reqData.URL, attempt+1, c.config.MaxRetries+1, errReadBody)
			if attempt == c.config.MaxRetries {
				return finalRespData
			}
			c.sleepBeforeRetry(ctx, attempt)
			continue
		}

		finalRespData.Response = resp
		finalRespData.Body = bodyBytes
		finalRespData.RespHeaders = resp.Header
		finalRespData.Error = nil
		c.logger.Debugf("Request to %s (attempt %d) done. Status: %s. Body size: %d",
			reqData.URL, attempt+1, resp.Status, len(bodyBytes))
		return finalRespData
	}
	return finalRespData
}

func (c *Client) sleepBeforeRetry(ctx context.Context, attempt int) {
	delayMs := c.config.RetryDelayBaseMs
	for i := 0; i < attempt; i++ {
		delayMs *= 2
	}
	if delayMs > c.config.RetryDelayMaxMs {
		delayMs = c.config.RetryDelayMaxMs
	}
	timer := time.NewTimer(time.Duration(delayMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
