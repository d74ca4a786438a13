package wire

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payload field names follow the JSON convention of the mobile clients that
// produced this wire format, so camelCase rather than snake_case.

type Type string

const (
	TypePaymentOffer  Type = "payment_offer"
	TypeTransferOffer Type = "transfer_offer"
	TypeIdentity      Type = "identity"
	TypeContactCard   Type = "contact_card"
	TypeSealedContact Type = "sealed_contact"
	TypeResponse      Type = "response"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// PaymentOffer is produced by a merchant device and consumed by a customer
// device. Amount may be absent for open-amount offers; the backend decides
// what an absent amount means.
type PaymentOffer struct {
	MerchantID  string           `json:"merchantId"`
	MerchantKey string           `json:"merchantKey"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Currency    string           `json:"currency"`
	Description string           `json:"description,omitempty"`
	OrderID     string           `json:"orderId,omitempty"`
	PaymentID   string           `json:"paymentId"`
	CreatedAt   time.Time        `json:"createdAt"`
	Signature   string           `json:"signature,omitempty"`
}

// TransferOffer is produced by the sending peer in a person-to-person
// transfer and consumed by the receiving peer.
type TransferOffer struct {
	SenderID   string          `json:"senderId"`
	SenderKey  string          `json:"senderKey"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Message    string          `json:"message,omitempty"`
	TransferID string          `json:"transferId"`
	CreatedAt  time.Time       `json:"createdAt"`
	Signature  string          `json:"signature,omitempty"`
}

type UserIdentity struct {
	UserID      string    `json:"userId"`
	PublicKey   string    `json:"publicKey"`
	DisplayName string    `json:"displayName"`
	Avatar      string    `json:"avatar,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	Signature   string    `json:"signature,omitempty"`
}

// ContactCard extends UserIdentity with sharing preferences. ExchangeKey is
// an X25519 public key the counterpart can seal its reply card to.
type ContactCard struct {
	UserID               string    `json:"userId"`
	PublicKey            string    `json:"publicKey"`
	DisplayName          string    `json:"displayName"`
	Avatar               string    `json:"avatar,omitempty"`
	SharePhoneNumber     bool      `json:"sharePhoneNumber"`
	ShareEmail           bool      `json:"shareEmail"`
	AllowPaymentRequests bool      `json:"allowPaymentRequests"`
	AllowDirectPayments  bool      `json:"allowDirectPayments"`
	ExchangeKey          string    `json:"exchangeKey,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	Signature            string    `json:"signature,omitempty"`
}

// SealedContact wraps an encrypted ContactCard. The inner card carries the
// signature; the sealed wrapper itself is not signed.
type SealedContact struct {
	EphemeralKey string    `json:"ephemeralKey"`
	Nonce        string    `json:"nonce"`
	Ciphertext   string    `json:"ciphertext"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Response closes the tap loop after backend processing.
type Response struct {
	Status        Status    `json:"status"`
	TransactionID string    `json:"transactionId,omitempty"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
