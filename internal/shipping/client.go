// Package shipping fetches the available shipping methods from the
// shipping-policy service. The cart engine never computes carrier rates; it
// only records the flat cost of the method the policy service offered.
package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/veloramart/cartd/internal/domain"
	apperrors "github.com/veloramart/cartd/pkg/errors"
	"github.com/veloramart/cartd/pkg/httpclient"
)

// Lookup resolves the currently offered shipping methods.
type Lookup interface {
	// Methods returns the shipping methods currently offered for the user's
	// cart. The returned slice is reference data and must not be mutated.
	Methods(ctx context.Context, userID string) ([]domain.ShippingMethod, error)

	// MethodByID resolves a single method from the offered set.
	// Returns ErrNotFound when the ID is not currently offered.
	MethodByID(ctx context.Context, userID, methodID string) (*domain.ShippingMethod, error)
}

// Client is an HTTP Lookup backed by the shipping-policy service, guarded by
// a circuit breaker.
type Client struct {
	http    *httpclient.CircuitBreakerClient
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a shipping-policy client.
func NewClient(baseURL string, cbCfg httpclient.CircuitBreakerConfig, logger *slog.Logger) *Client {
	base := httpclient.New(httpclient.DefaultConfig())
	cb := httpclient.NewCircuitBreakerClient(base, cbCfg, logger)
	return &Client{
		http:    cb,
		baseURL: baseURL,
		logger:  logger,
	}
}

type methodsResponse struct {
	Data []domain.ShippingMethod `json:"data"`
}

// Methods fetches the offered shipping methods for the user.
func (c *Client) Methods(ctx context.Context, userID string) ([]domain.ShippingMethod, error) {
	url := fmt.Sprintf("%s/api/v1/shipping-policies/methods?user_id=%s", c.baseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create shipping methods request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch shipping methods: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "shipping-policy")
	}

	var body methodsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode shipping methods: %w", err)
	}

	return body.Data, nil
}

// MethodByID resolves one method from the offered set.
func (c *Client) MethodByID(ctx context.Context, userID, methodID string) (*domain.ShippingMethod, error) {
	methods, err := c.Methods(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range methods {
		if methods[i].ID == methodID {
			m := methods[i]
			return &m, nil
		}
	}
	return nil, apperrors.NotFound("shipping method", methodID)
}
