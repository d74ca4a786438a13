package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tapwire/internal/taperr"
)

// ProtocolVersion tags every request so the backend can reject clients
// speaking an older tap protocol.
const ProtocolVersion = 1

const maxResponseBytes = 1 << 20

type Client struct {
	endpoint  string
	hc        *http.Client
	deviceID  string
	sessionID string
}

func NewClient(hc *http.Client, endpoint, deviceID, sessionID string) (*Client, error) {
	if strings.HasSuffix(endpoint, "/") {
		return nil, errors.New("endpoint must not have a trailing slash")
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		endpoint:  endpoint,
		hc:        hc,
		deviceID:  deviceID,
		sessionID: sessionID,
	}, nil
}

func (c *Client) DeviceID() string  { return c.deviceID }
func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) do(ctx context.Context, method, path string, req, resp any) error {
	buf, err := json.Marshal(req)
	if err != nil {
		return err
	}

	hreq, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("X-Tapwire-Protocol", fmt.Sprintf("%d", ProtocolVersion))
	hreq.Header.Set("X-Tapwire-Device", c.deviceID)

	hresp, err := c.hc.Do(hreq)
	if err != nil {
		return taperr.Wrap(taperr.CodeBackendFailure, "backend unreachable", err)
	}
	defer hresp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(hresp.Body, maxResponseBytes))
	if err != nil {
		return taperr.Wrap(taperr.CodeBackendFailure, "read backend response", err)
	}

	if hresp.StatusCode < 200 || hresp.StatusCode > 299 {
		return taperr.BackendFailure(errorMessage(body, hresp.StatusCode))
	}

	if resp == nil {
		return nil
	}
	if err := json.Unmarshal(body, resp); err != nil {
		return taperr.Wrap(taperr.CodeBackendFailure, "decode backend response", err)
	}
	return nil
}

// errorMessage pulls the server-provided message out of the standard error
// body, falling back to a generic string per status code.
func errorMessage(body []byte, status int) string {
	var shape struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &shape); err == nil {
		if shape.Message != "" {
			return shape.Message
		}
		if shape.Error != "" {
			return shape.Error
		}
	}
	return fmt.Sprintf("backend returned status %d", status)
}

func (c *Client) ProcessPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	req.DeviceID = c.deviceID
	req.SessionID = c.sessionID
	req.Protocol = ProtocolVersion
	var resp PaymentResult
	if err := c.do(ctx, http.MethodPost, "/v1/nfc/payments", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, taperr.BackendFailure(orGeneric(resp.Message))
	}
	return &resp, nil
}

func (c *Client) ProcessTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	req.DeviceID = c.deviceID
	req.SessionID = c.sessionID
	req.Protocol = ProtocolVersion
	var resp TransferResult
	if err := c.do(ctx, http.MethodPost, "/v1/nfc/transfers", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, taperr.BackendFailure(orGeneric(resp.Message))
	}
	return &resp, nil
}

func (c *Client) RegisterDevice(ctx context.Context, req RegisterDeviceRequest) (*RegisterDeviceResult, error) {
	var resp RegisterDeviceResult
	if err := c.do(ctx, http.MethodPost, "/v1/nfc/devices", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) AddContact(ctx context.Context, req AddContactRequest) error {
	req.DeviceID = c.deviceID
	req.Protocol = ProtocolVersion
	return c.do(ctx, http.MethodPost, "/v1/nfc/contacts", req, nil)
}

func (c *Client) TransactionStatus(ctx context.Context, transactionID string) (*StatusResult, error) {
	var resp StatusResult
	path := "/v1/nfc/transactions/" + transactionID
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func orGeneric(message string) string {
	if message == "" {
		return "payment could not be processed"
	}
	return message
}
