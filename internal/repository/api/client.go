// Package api implements the lookup repositories against the remote pricing API.
package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/flexprice/checkout-pricing/internal/config"
	ierr "github.com/flexprice/checkout-pricing/internal/errors"
	"github.com/flexprice/checkout-pricing/internal/httpclient"
	"github.com/flexprice/checkout-pricing/internal/logger"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client issues authenticated GET requests against the pricing API
type Client struct {
	http      httpclient.Client
	baseURL   string
	publicKey string
	log       *logger.Logger
}

func NewClient(http httpclient.Client, cfg config.APIConfig, log *logger.Logger) *Client {
	return &Client{
		http:      http,
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		publicKey: cfg.PublicKey,
		log:       log,
	}
}

// get fetches path and decodes the body into out. resource and key only
// feed error hints and details.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any, resource, key string) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	headers := map[string]string{}
	if c.publicKey != "" {
		headers["Authorization"] = "Bearer " + c.publicKey
	}

	c.log.Debugw("api request", "resource", resource, "key", key, "path", path)

	resp, err := c.http.Send(ctx, &httpclient.Request{
		Method:  http.MethodGet,
		URL:     u,
		Headers: headers,
	})
	if err != nil {
		return c.mapError(err, resource, key)
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return ierr.WithError(err).
			WithHintf("Unexpected %s response from the pricing service", resource).
			WithReportableDetails(map[string]any{
				"resource": resource,
				"key":      key,
			}).
			Mark(ierr.ErrAPI)
	}
	return nil
}

func (c *Client) mapError(err error, resource, key string) error {
	httpErr, ok := httpclient.IsHTTPError(err)
	if !ok {
		// transport failures arrive already marked as api-error or api-timeout
		c.log.Warnw("api request failed", "resource", resource, "key", key, "error", err)
		return err
	}

	details := map[string]any{
		"resource":    resource,
		"key":         key,
		"status_code": httpErr.StatusCode,
	}
	if httpErr.StatusCode == http.StatusNotFound {
		return ierr.WithError(err).
			WithHintf("%s %s was not found", resource, key).
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	}

	c.log.Warnw("api request rejected", "resource", resource, "key", key, "status_code", httpErr.StatusCode)
	return ierr.WithError(err).
		WithHintf("Failed to get %s", resource).
		WithReportableDetails(details).
		Mark(ierr.ErrAPI)
}
