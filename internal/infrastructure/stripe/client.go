package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/crm-backoffice/internal/application/upsell"
	"github.com/tu-usuario/crm-backoffice/internal/domain"
)

const defaultBaseURL = "https://api.stripe.com"

var _ upsell.BillingGateway = (*Client)(nil)

// Client implementa BillingGateway contra la API REST de Stripe.
// Usa net/http con payloads form-encoded, que es el formato que la API exige.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient construye el cliente de facturación. baseURL vacío usa el
// endpoint real de Stripe; los tests inyectan un httptest.Server.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ── Estructuras de respuesta ──────────────────────────────────────────────────

type subscriptionList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type subscriptionItem struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
	Invoice      struct {
		ID string `json:"id"`
	} `json:"latest_invoice"`
	ProrationDetails struct {
		AmountDue int64 `json:"amount_due"`
	} `json:"proration_details"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ── BillingGateway ────────────────────────────────────────────────────────────

// GetBillingInfo busca la suscripción activa del cliente de Stripe.
func (c *Client) GetBillingInfo(ctx context.Context, stripeCustomerID string) (*upsell.BillingInfo, error) {
	params := url.Values{}
	params.Set("customer", stripeCustomerID)
	params.Set("status", "active")
	params.Set("limit", "1")

	body, err := c.do(ctx, http.MethodGet, "/v1/subscriptions?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var list subscriptionList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("stripe: parsear lista de suscripciones: %w", err)
	}
	if len(list.Data) == 0 {
		return nil, domain.ErrNoSubscription
	}
	return &upsell.BillingInfo{SubscriptionID: list.Data[0].ID}, nil
}

// AddSubscriptionItem agrega un ítem a la suscripción con prorrateo opcional.
// Stripe cobra la diferencia proporcional del ciclo en curso cuando prorate es true.
func (c *Client) AddSubscriptionItem(ctx context.Context, subscriptionID, priceID string, quantity int, prorate bool) (*upsell.SubscriptionItem, error) {
	form := url.Values{}
	form.Set("subscription", subscriptionID)
	form.Set("price", priceID)
	form.Set("quantity", strconv.Itoa(quantity))
	if prorate {
		form.Set("proration_behavior", "create_prorations")
	} else {
		form.Set("proration_behavior", "none")
	}

	body, err := c.do(ctx, http.MethodPost, "/v1/subscription_items", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	var item subscriptionItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("stripe: parsear subscription item: %w", err)
	}

	// Stripe reporta montos en centavos.
	prorated := decimal.NewFromInt(item.ProrationDetails.AmountDue).Div(decimal.NewFromInt(100))
	return &upsell.SubscriptionItem{
		SubscriptionItemID: item.ID,
		InvoiceID:          item.Invoice.ID,
		ProratedAmount:     prorated,
		IsFirstBilling:     item.Invoice.ID == "",
	}, nil
}

// ── Transporte ────────────────────────────────────────────────────────────────

func (c *Client) do(ctx context.Context, method, path string, payload io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("stripe: crear request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("stripe: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("stripe: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, fmt.Errorf("stripe: leer respuesta: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(rawBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("stripe: %s [%s]: %s", apiErr.Error.Type, apiErr.Error.Code, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("stripe: HTTP %d: %s", resp.StatusCode, string(rawBody))
	}
	return rawBody, nil
}
