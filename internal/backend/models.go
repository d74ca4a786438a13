package backend

import (
	"github.com/shopspring/decimal"
)

// Request/response shapes mirror the remote API and are passed through
// verbatim; this client does no reinterpretation of backend contracts.

type Geo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type PaymentRequest struct {
	PaymentID   string           `json:"paymentId"`
	MerchantID  string           `json:"merchantId"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Currency    string           `json:"currency"`
	Description string           `json:"description,omitempty"`
	OrderID     string           `json:"orderId,omitempty"`
	DeviceID    string           `json:"deviceId"`
	SessionID   string           `json:"sessionId"`
	Protocol    int              `json:"protocol"`
	Geo         *Geo             `json:"geo,omitempty"`
}

type PaymentResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId,omitempty"`
	Status        string `json:"status,omitempty"`
	Message       string `json:"message,omitempty"`
}

type TransferRequest struct {
	TransferID string          `json:"transferId"`
	SenderID   string          `json:"senderId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Message    string          `json:"message,omitempty"`
	DeviceID   string          `json:"deviceId"`
	SessionID  string          `json:"sessionId"`
	Protocol   int             `json:"protocol"`
	Geo        *Geo            `json:"geo,omitempty"`
}

type TransferResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId,omitempty"`
	Status        string `json:"status,omitempty"`
	Message       string `json:"message,omitempty"`
}

type RegisterDeviceRequest struct {
	PublicKey  string `json:"publicKey"`
	DeviceName string `json:"deviceName"`
	HardwareID string `json:"hardwareId,omitempty"`
	OSVersion  string `json:"osVersion,omitempty"`
	Protocol   int    `json:"protocol"`
}

type RegisterDeviceResult struct {
	DeviceID string `json:"deviceId"`
	Status   string `json:"status"`
}

type AddContactRequest struct {
	UserID               string `json:"userId"`
	PublicKey            string `json:"publicKey"`
	DisplayName          string `json:"displayName"`
	SharePhoneNumber     bool   `json:"sharePhoneNumber"`
	ShareEmail           bool   `json:"shareEmail"`
	AllowPaymentRequests bool   `json:"allowPaymentRequests"`
	AllowDirectPayments  bool   `json:"allowDirectPayments"`
	DeviceID             string `json:"deviceId"`
	Protocol             int    `json:"protocol"`
}

// Transaction status values reported by the backend. Anything else is
// treated as non-final.
const (
	TxStatusPending = "PENDING"
	TxStatusSuccess = "SUCCESS"
	TxStatusFailed  = "FAILED"
)

type StatusResult struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
}

func (r *StatusResult) Final() bool {
	return r.Status == TxStatusSuccess || r.Status == TxStatusFailed
}
