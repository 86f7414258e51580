package webkul

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/omniloja/sellerbridge/internal/pkg/config"
	"github.com/omniloja/sellerbridge/internal/pkg/provision"
)

// Client talks to the Webkul marketplace API. It implements
// provision.SellerRegistry.
type Client struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

// NewClient creates a Webkul client from the service configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL: strings.TrimRight(cfg.WebkulBaseURL, "/"),
		APIKey:  cfg.WebkulAPIKey,
		HTTPClient: &http.Client{
			Timeout: cfg.UpstreamTimeout,
		},
	}
}

// CreateSeller submits a seller provisioning request. Any HTTP status is
// returned as a response for the provisioner to classify; only transport
// failures surface as errors.
func (c *Client) CreateSeller(ctx context.Context, req provision.SellerRequest) (*provision.SellerResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode seller request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/sellers.json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("seller creation request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return &provision.SellerResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}
