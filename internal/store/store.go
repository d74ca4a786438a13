package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"tapwire/internal/wire"
)

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("conflict")

// Contact is a counterpart whose card passed signature verification during
// a contact exchange.
type Contact struct {
	UserID               string    `json:"user_id"`
	PublicKey            string    `json:"public_key"`
	DisplayName          string    `json:"display_name"`
	Avatar               string    `json:"avatar,omitempty"`
	SharePhoneNumber     bool      `json:"share_phone_number"`
	ShareEmail           bool      `json:"share_email"`
	AllowPaymentRequests bool      `json:"allow_payment_requests"`
	AllowDirectPayments  bool      `json:"allow_direct_payments"`
	AddedAt              time.Time `json:"added_at"`
}

// TapRecord is the local history entry for one completed or failed tap.
// Records expire after the configured retention and are swept.
type TapRecord struct {
	ID            string           `json:"id"`
	Mode          string           `json:"mode"`
	Status        wire.Status      `json:"status"`
	TransactionID string           `json:"transaction_id,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	Counterparty  string           `json:"counterparty,omitempty"`
	Detail        string           `json:"detail,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	ExpiresAt     time.Time        `json:"expires_at"`
}

type Store interface {
	SaveContact(ctx context.Context, contact Contact) error
	GetContact(ctx context.Context, userID string) (Contact, error)
	ListContacts(ctx context.Context) ([]Contact, error)
	DeleteContact(ctx context.Context, userID string) error

	AppendTap(ctx context.Context, record TapRecord) error
	ListTaps(ctx context.Context) ([]TapRecord, error)

	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
