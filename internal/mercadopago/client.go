package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atelielash/agenda-api/pkg/logging"
)

var tracer = otel.Tracer("agenda.internal.mercadopago")

// Client talks to the Mercado Pago REST API.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *logging.Logger
}

// NewClient creates a Mercado Pago client with a bounded request timeout so a
// slow provider cannot pin request handlers.
func NewClient(accessToken string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:     "https://api.mercadopago.com",
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

// WithBaseURL overrides the API host (tests, sandbox).
func (c *Client) WithBaseURL(baseURL string) *Client {
	if baseURL == "" {
		return c
	}
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// CreatePreference creates a checkout preference for a booking deposit and
// returns the redirect URL (init_point) plus the preference id.
func (c *Client) CreatePreference(ctx context.Context, params PreferenceRequest) (*Preference, error) {
	ctx, span := tracer.Start(ctx, "mercadopago.create_preference")
	defer span.End()
	span.SetAttributes(
		attribute.String("agenda.external_reference", params.ExternalReference),
		attribute.Int64("agenda.amount_cents", params.AmountCents),
	)

	meta := make(map[string]string, len(params.Metadata))
	for k, v := range params.Metadata {
		meta[k] = v
	}

	body := map[string]any{
		"items": []map[string]any{
			{
				"title":       params.Title,
				"quantity":    1,
				"currency_id": "BRL",
				"unit_price":  float64(params.AmountCents) / 100,
			},
		},
		"external_reference": params.ExternalReference,
		"metadata":           meta,
	}
	backURLs := map[string]string{}
	if params.SuccessURL != "" {
		backURLs["success"] = params.SuccessURL
	}
	if params.FailureURL != "" {
		backURLs["failure"] = params.FailureURL
	}
	if len(backURLs) > 0 {
		body["back_urls"] = backURLs
		if params.SuccessURL != "" {
			body["auto_return"] = "approved"
		}
	}
	if params.NotificationURL != "" {
		body["notification_url"] = params.NotificationURL
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: preference payload: %w", err)
	}

	apiURL := c.baseURL + "/checkout/preferences"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("mercadopago: preference request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: preference http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mercadopago: preference status %d: %s", resp.StatusCode, string(body))
	}

	var pref Preference
	if err := json.NewDecoder(resp.Body).Decode(&pref); err != nil {
		return nil, fmt.Errorf("mercadopago: preference decode: %w", err)
	}
	if pref.InitPoint == "" {
		return nil, fmt.Errorf("mercadopago: preference response missing init_point")
	}
	return &pref, nil
}

// GetPayment fetches the authoritative payment record by provider id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	ctx, span := tracer.Start(ctx, "mercadopago.get_payment")
	defer span.End()
	span.SetAttributes(attribute.String("agenda.payment_id", paymentID))

	apiURL := c.baseURL + "/v1/payments/" + url.PathEscape(paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: payment request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: payment http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mercadopago: payment %s status %d: %s", paymentID, resp.StatusCode, string(body))
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("mercadopago: payment decode: %w", err)
	}
	return &payment, nil
}
