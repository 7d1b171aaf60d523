package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/joshuaaaaa/Lednice-2.0/internal/terminal"
)

// Client is the direct-response adapter to the remote authority. Verification
// may resolve inline or be acknowledged only, in which case the outcome
// arrives through the push Subscriber instead; both feed the same state
// machine.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

type verifyRequest struct {
	Pin       string `json:"pin"`
	RequestID string `json:"request_id"`
}

type verifyResponse struct {
	RequestID string `json:"request_id"`
	Valid     bool   `json:"valid"`
	Room      string `json:"room,omitempty"`
}

func (c *Client) VerifyPin(ctx context.Context, pin, requestID string) (*terminal.Notification, error) {
	var res verifyResponse
	status, err := c.post(ctx, "/verify_pin", verifyRequest{Pin: pin, RequestID: requestID}, &res)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return &terminal.Notification{RequestID: res.RequestID, Valid: res.Valid, Room: res.Room}, nil
	case http.StatusAccepted:
		// ack only; the push channel delivers the outcome
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: verify_pin status %d", terminal.ErrConnection, status)
	}
}

type consumeRequest struct {
	Credential string `json:"credential"`
	Products   []int  `json:"products"`
}

type consumeResponse struct {
	Room    string `json:"room,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Details []struct {
		Code      int `json:"code"`
		Required  int `json:"required"`
		Available int `json:"available"`
	} `json:"details,omitempty"`
}

func (c *Client) ConsumeProducts(ctx context.Context, credential string, products []int) error {
	var res consumeResponse
	status, err := c.post(ctx, "/consume", consumeRequest{Credential: credential, Products: products}, &res)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusConflict, http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", terminal.ErrConsumeRejected, res.Reason)
	default:
		return fmt.Errorf("%w: consume status %d", terminal.ErrConnection, status)
	}
}

// post sends a JSON body and decodes the JSON response when there is one.
// Transport-level failures wrap terminal.ErrConnection so callers can tell
// "could not reach the authority" apart from "the authority said no".
func (c *Client) post(ctx context.Context, path string, body, out any) (int, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", terminal.ErrConnection, err)
	}
	defer resp.Body.Close()

	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}
