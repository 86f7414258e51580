package asaas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/omniloja/sellerbridge/internal/pkg/config"
	"github.com/omniloja/sellerbridge/internal/pkg/provision"
)

// Client talks to the Asaas billing API. It implements
// provision.CustomerDirectory.
type Client struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

// NewClient creates an Asaas client from the service configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL: strings.TrimRight(cfg.AsaasBaseURL, "/"),
		APIKey:  cfg.AsaasAPIKey,
		HTTPClient: &http.Client{
			Timeout: cfg.UpstreamTimeout,
		},
	}
}

type customerResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	MobilePhone string `json:"mobilePhone"`
}

type paymentResponse struct {
	ID       string          `json:"id"`
	Customer string          `json:"customer"`
	Value    decimal.Decimal `json:"value"`
	Status   string          `json:"status"`
}

// GetCustomer fetches a customer by id.
func (c *Client) GetCustomer(ctx context.Context, id string) (*provision.CustomerRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("customer id is required")
	}

	body, err := c.get(ctx, "/customers/"+id, provision.ErrCustomerNotFound)
	if err != nil {
		return nil, err
	}

	var out customerResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode customer response: %w", err)
	}

	phone := strings.TrimSpace(out.Phone)
	if phone == "" {
		phone = strings.TrimSpace(out.MobilePhone)
	}
	return &provision.CustomerRecord{
		ID:    strings.TrimSpace(out.ID),
		Name:  strings.TrimSpace(out.Name),
		Email: strings.TrimSpace(out.Email),
		Phone: phone,
	}, nil
}

// GetPayment fetches the full payment record by id.
func (c *Client) GetPayment(ctx context.Context, id string) (*provision.PaymentLookup, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("payment id is required")
	}

	body, err := c.get(ctx, "/payments/"+id, provision.ErrPaymentNotFound)
	if err != nil {
		return nil, err
	}

	var out paymentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode payment response: %w", err)
	}
	return &provision.PaymentLookup{
		ID:         strings.TrimSpace(out.ID),
		CustomerID: strings.TrimSpace(out.Customer),
		Status:     strings.TrimSpace(out.Status),
		Value:      out.Value,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, notFound error) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("access_token", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provision.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, notFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: asaas returned status %d", provision.ErrUpstreamUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("asaas request %s failed: status=%d body=%s", path, resp.StatusCode, string(body))
	}
}
