package flows

import (
	"context"
	"encoding/json"

	"tapwire/internal/backend"
	"tapwire/internal/logging"
	"tapwire/internal/sealed"
	"tapwire/internal/session"
	"tapwire/internal/signing"
	"tapwire/internal/store"
	"tapwire/internal/taperr"
	"tapwire/internal/wire"
)

// contactShareFlow hosts a contact exchange: it publishes its own signed
// card with a fresh exchange key and waits for the counterpart's card, which
// normally arrives sealed to that key. contactJoinFlow is the other side: it
// waits for a host card and replies with its own.
//
// Both sides verify the counterpart's signature before anything is stored
// or shown to the user. A card that fails verification leaves no trace.

type contactShareFlow struct {
	f  *Factory
	kp *sealed.KeyPair
}

func (f *Factory) contactShare() (*contactShareFlow, error) {
	kp, err := sealed.GenerateKeyPair()
	if err != nil {
		return nil, taperr.Wrap(taperr.CodeInternal, "generate exchange key", err)
	}
	return &contactShareFlow{f: f, kp: kp}, nil
}

func (c *contactShareFlow) Open(ctx context.Context) ([]byte, error) {
	card, err := c.f.ownCard(c.kp.PublicB64())
	if err != nil {
		return nil, err
	}
	return wire.Encode(wire.TypeContactCard, card)
}

func (c *contactShareFlow) Accepts(t wire.Type) bool {
	return t == wire.TypeSealedContact || t == wire.TypeContactCard
}

func (c *contactShareFlow) Handle(ctx context.Context, env wire.Envelope) (session.Result, error) {
	var card wire.ContactCard
	switch env.Type {
	case wire.TypeSealedContact:
		box, err := env.Sealed()
		if err != nil {
			return session.Result{}, taperr.InvalidPayload("malformed sealed contact")
		}
		plaintext, err := c.kp.Open(sealed.Box{
			EphemeralKey: box.EphemeralKey,
			Nonce:        box.Nonce,
			Ciphertext:   box.Ciphertext,
		})
		if err != nil {
			return session.Result{}, taperr.InvalidPayload("cannot open sealed contact")
		}
		if err := json.Unmarshal(plaintext, &card); err != nil {
			return session.Result{}, taperr.InvalidPayload("malformed sealed contact")
		}
	case wire.TypeContactCard:
		decoded, err := env.Contact()
		if err != nil {
			return session.Result{}, taperr.InvalidPayload("malformed contact card")
		}
		card = decoded
	default:
		return session.Result{}, taperr.InvalidPayload("unexpected payload type")
	}

	if err := c.f.acceptContact(ctx, card, "contact_share"); err != nil {
		return session.Result{}, err
	}
	return session.Result{Message: "Contact Added"}, nil
}

type contactJoinFlow struct {
	f *Factory
}

func (f *Factory) contactJoin() *contactJoinFlow { return &contactJoinFlow{f: f} }

func (c *contactJoinFlow) Open(context.Context) ([]byte, error) { return nil, nil }

func (c *contactJoinFlow) Accepts(t wire.Type) bool { return t == wire.TypeContactCard }

func (c *contactJoinFlow) Handle(ctx context.Context, env wire.Envelope) (session.Result, error) {
	card, err := env.Contact()
	if err != nil {
		return session.Result{}, taperr.InvalidPayload("malformed contact card")
	}

	if err := c.f.acceptContact(ctx, card, "contact_join"); err != nil {
		return session.Result{}, err
	}

	if err := c.reply(ctx, card); err != nil {
		return session.Result{}, err
	}
	return session.Result{Message: "Contact Added"}, nil
}

// reply sends our own card back, sealed to the host's exchange key when one
// was advertised, otherwise in the clear.
func (c *contactJoinFlow) reply(ctx context.Context, host wire.ContactCard) error {
	own, err := c.f.ownCard("")
	if err != nil {
		return err
	}

	var message []byte
	if host.ExchangeKey != "" {
		plaintext, err := json.Marshal(own)
		if err != nil {
			return taperr.Wrap(taperr.CodeInternal, "encode contact card", err)
		}
		box, err := sealed.Seal(plaintext, host.ExchangeKey)
		if err != nil {
			return taperr.Wrap(taperr.CodeInvalidPayload, "seal contact card", err)
		}
		message, err = wire.Encode(wire.TypeSealedContact, wire.SealedContact{
			EphemeralKey: box.EphemeralKey,
			Nonce:        box.Nonce,
			Ciphertext:   box.Ciphertext,
			CreatedAt:    c.f.deps.Clock.Now(),
		})
		if err != nil {
			return err
		}
	} else {
		message, err = wire.Encode(wire.TypeContactCard, own)
		if err != nil {
			return err
		}
	}

	if err := c.f.deps.Writer.Write(ctx, message); err != nil {
		return taperr.Wrap(taperr.CodeHardwareDisabled, "write contact reply", err)
	}
	return nil
}

// ownCard builds the local user's signed card.
func (f *Factory) ownCard(exchangeKey string) (wire.ContactCard, error) {
	deps := f.deps
	card := wire.ContactCard{
		UserID:               deps.Identity.UserID,
		PublicKey:            deps.Signer.PublicHex(),
		DisplayName:          deps.Identity.DisplayName,
		Avatar:               deps.Identity.Avatar,
		SharePhoneNumber:     deps.Prefs.SharePhoneNumber,
		ShareEmail:           deps.Prefs.ShareEmail,
		AllowPaymentRequests: deps.Prefs.AllowPaymentRequests,
		AllowDirectPayments:  deps.Prefs.AllowDirectPayments,
		ExchangeKey:          exchangeKey,
		CreatedAt:            deps.Clock.Now(),
	}
	signature, err := deps.Signer.Sign(card)
	if err != nil {
		return wire.ContactCard{}, taperr.Wrap(taperr.CodeInternal, "sign contact card", err)
	}
	card.Signature = signature
	return card, nil
}

// acceptContact runs the shared verify-confirm-store sequence for an
// incoming card. Verification happens first: an unverifiable card is
// rejected before the user sees a prompt and before anything is persisted.
func (f *Factory) acceptContact(ctx context.Context, card wire.ContactCard, mode string) error {
	deps := f.deps

	if card.UserID == "" || card.PublicKey == "" {
		return taperr.InvalidPayload("contact card missing identity")
	}
	if !signing.Verify(card, card.Signature, card.PublicKey) {
		deps.Metrics.IncSignatureRejects()
		return taperr.InvalidSignature("contact card failed verification")
	}

	prompt := Prompt{
		Kind:         "contact",
		Counterparty: card.DisplayName,
	}
	if err := f.confirm(ctx, prompt); err != nil {
		return err
	}

	if deps.Store != nil {
		contact := store.Contact{
			UserID:               card.UserID,
			PublicKey:            card.PublicKey,
			DisplayName:          card.DisplayName,
			Avatar:               card.Avatar,
			SharePhoneNumber:     card.SharePhoneNumber,
			ShareEmail:           card.ShareEmail,
			AllowPaymentRequests: card.AllowPaymentRequests,
			AllowDirectPayments:  card.AllowDirectPayments,
			AddedAt:              deps.Clock.Now(),
		}
		if err := deps.Store.SaveContact(ctx, contact); err != nil {
			return taperr.StorageUnavailable("save contact", err)
		}
	}

	// Backend sync is best-effort; the contact is already usable locally.
	if deps.Backend != nil {
		err := deps.Backend.AddContact(ctx, backend.AddContactRequest{
			UserID:               card.UserID,
			PublicKey:            card.PublicKey,
			DisplayName:          card.DisplayName,
			SharePhoneNumber:     card.SharePhoneNumber,
			ShareEmail:           card.ShareEmail,
			AllowPaymentRequests: card.AllowPaymentRequests,
			AllowDirectPayments:  card.AllowDirectPayments,
		})
		if err != nil {
			logging.Allowlist(deps.Logger, map[string]string{
				"event": "contact_sync_failed",
				"error": "backend",
			})
		}
	}

	deps.Metrics.IncContactsExchanged()
	deps.Haptics.Success()
	f.recordTap(ctx, store.TapRecord{
		Mode:         mode,
		Status:       wire.StatusSuccess,
		Counterparty: card.UserID,
	})
	return nil
}
