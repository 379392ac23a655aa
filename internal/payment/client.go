// Package payment is the HTTP client for the external hosted-payment-link
// gateway. One synchronous POST per attempt, bounded timeout, no retries:
// retry policy belongs to the checkout orchestrator, which tracks attempts on
// the order itself.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

const (
	CodeTimeout     = "timeout"
	CodeUnavailable = "unavailable"
	CodeBadResponse = "bad_response"

	maxRawResponse = 4096
)

// GatewayError is the normalized failure of a payment-link request: any
// non-2xx response, malformed payload or transport error ends up here.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: %s: %s", e.Code, e.Message)
}

// IsTimeout reports whether err is a gateway timeout, which callers log
// distinctly because the true outcome of the charge is unknown.
func IsTimeout(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Code == CodeTimeout
}

type LinkRequest struct {
	OrderID          uint
	Amount           decimal.Decimal
	Description      string
	CustomerEmail    string
	IdempotencyToken string
}

// PaymentLink is a successful gateway response. Raw carries the response body
// (truncated) for the payment attempt audit row.
type PaymentLink struct {
	URL string
	Raw string
}

type linkRequestBody struct {
	OrderID          uint   `json:"order_id"`
	Amount           string `json:"amount"`
	Description      string `json:"description"`
	CustomerEmail    string `json:"customer_email"`
	IdempotencyToken string `json:"idempotency_token"`
}

type linkResponseBody struct {
	PaylinkURL string `json:"paylink_url"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*PaymentLink]
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[*PaymentLink](gobreaker.Settings{
			Name: "payment-gateway",
		}),
	}
}

// RequestPaymentLink performs exactly one gateway call. The idempotency token
// is newly generated per attempt by the caller, so the gateway sees each
// attempt as a distinct transaction.
func (c *Client) RequestPaymentLink(ctx context.Context, req LinkRequest) (*PaymentLink, error) {
	link, err := c.breaker.Execute(func() (*PaymentLink, error) {
		return c.requestOnce(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &GatewayError{Code: CodeUnavailable, Message: err.Error()}
		}
		return nil, err
	}
	return link, nil
}

func (c *Client) requestOnce(ctx context.Context, req LinkRequest) (*PaymentLink, error) {
	body := linkRequestBody{
		OrderID:          req.OrderID,
		Amount:           req.Amount.StringFixed(2),
		Description:      req.Description,
		CustomerEmail:    req.CustomerEmail,
		IdempotencyToken: req.IdempotencyToken,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &GatewayError{Code: CodeBadResponse, Message: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/paylinks", bytes.NewReader(payload))
	if err != nil {
		return nil, &GatewayError{Code: CodeBadResponse, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if isTimeoutErr(err) {
			return nil, &GatewayError{Code: CodeTimeout, Message: err.Error()}
		}
		return nil, &GatewayError{Code: CodeUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRawResponse))
	if err != nil {
		return nil, &GatewayError{Code: CodeBadResponse, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &GatewayError{
			Code:    fmt.Sprintf("http_%d", resp.StatusCode),
			Message: string(raw),
		}
	}

	var parsed linkResponseBody
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &GatewayError{Code: CodeBadResponse, Message: err.Error()}
	}
	if parsed.PaylinkURL == "" {
		return nil, &GatewayError{Code: CodeBadResponse, Message: "response missing paylink_url"}
	}

	return &PaymentLink{URL: parsed.PaylinkURL, Raw: string(raw)}, nil
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
