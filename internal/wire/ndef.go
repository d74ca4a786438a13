package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NDEF text record framing. Payloads travel as a single well-known text
// record ("T") whose text is a JSON envelope with a type discriminator.

const (
	ndefShortRecord = 0xD1 // MB|ME|SR, TNF well-known
	ndefLongRecord  = 0xC1 // MB|ME, TNF well-known
	ndefTypeText    = 'T'
	textLangCode    = "en"
)

var ErrNotTextRecord = errors.New("not an ndef text record")

type Envelope struct {
	Type Type            `json:"type"`
	Body json.RawMessage `json:"body"`
}

// Encode marshals payload into an envelope and wraps it in an NDEF text
// record.
func Encode(t Type, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	env, err := json.Marshal(Envelope{Type: t, Body: body})
	if err != nil {
		return nil, err
	}
	return encodeTextRecord(env), nil
}

// Decode unwraps an NDEF text record and parses the JSON envelope. A second
// return of false means the message is not ours: malformed records, foreign
// text records and unknown types are all ignored rather than treated as
// errors, since tags from unrelated systems may be present.
func Decode(record []byte) (Envelope, bool) {
	text, err := decodeTextRecord(record)
	if err != nil {
		return Envelope{}, false
	}
	var env Envelope
	if err := json.Unmarshal(text, &env); err != nil {
		return Envelope{}, false
	}
	if env.Type == "" {
		return Envelope{}, false
	}
	return env, true
}

func (e Envelope) Payment() (PaymentOffer, error) {
	var offer PaymentOffer
	if err := json.Unmarshal(e.Body, &offer); err != nil {
		return PaymentOffer{}, fmt.Errorf("decode payment offer: %w", err)
	}
	return offer, nil
}

func (e Envelope) Transfer() (TransferOffer, error) {
	var offer TransferOffer
	if err := json.Unmarshal(e.Body, &offer); err != nil {
		return TransferOffer{}, fmt.Errorf("decode transfer offer: %w", err)
	}
	return offer, nil
}

func (e Envelope) Contact() (ContactCard, error) {
	var card ContactCard
	if err := json.Unmarshal(e.Body, &card); err != nil {
		return ContactCard{}, fmt.Errorf("decode contact card: %w", err)
	}
	return card, nil
}

func (e Envelope) Sealed() (SealedContact, error) {
	var sealed SealedContact
	if err := json.Unmarshal(e.Body, &sealed); err != nil {
		return SealedContact{}, fmt.Errorf("decode sealed contact: %w", err)
	}
	return sealed, nil
}

func (e Envelope) Response() (Response, error) {
	var resp Response
	if err := json.Unmarshal(e.Body, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

func encodeTextRecord(text []byte) []byte {
	status := byte(len(textLangCode))
	payload := make([]byte, 0, 1+len(textLangCode)+len(text))
	payload = append(payload, status)
	payload = append(payload, textLangCode...)
	payload = append(payload, text...)

	if len(payload) < 256 {
		record := make([]byte, 0, 4+len(payload))
		record = append(record, ndefShortRecord, 1, byte(len(payload)), ndefTypeText)
		return append(record, payload...)
	}

	size := len(payload)
	record := make([]byte, 0, 7+size)
	record = append(record, ndefLongRecord, 1,
		byte(size>>24), byte(size>>16), byte(size>>8), byte(size),
		ndefTypeText)
	return append(record, payload...)
}

func decodeTextRecord(record []byte) ([]byte, error) {
	if len(record) < 4 {
		return nil, ErrNotTextRecord
	}

	header := record[0]
	typeLen := int(record[1])
	var payloadLen, offset int
	switch header {
	case ndefShortRecord:
		payloadLen = int(record[2])
		offset = 3
	case ndefLongRecord:
		if len(record) < 7 {
			return nil, ErrNotTextRecord
		}
		payloadLen = int(record[2])<<24 | int(record[3])<<16 | int(record[4])<<8 | int(record[5])
		offset = 6
	default:
		return nil, ErrNotTextRecord
	}

	if typeLen != 1 || len(record) < offset+1+payloadLen {
		return nil, ErrNotTextRecord
	}
	if record[offset] != ndefTypeText {
		return nil, ErrNotTextRecord
	}
	payload := record[offset+1 : offset+1+payloadLen]

	if len(payload) < 1 {
		return nil, ErrNotTextRecord
	}
	langLen := int(payload[0] & 0x3F)
	if len(payload) < 1+langLen {
		return nil, ErrNotTextRecord
	}
	return payload[1+langLen:], nil
}
