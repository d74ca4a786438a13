package agent

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"tapwire/internal/nfc"
	"tapwire/internal/session"
	"tapwire/internal/store"
	"tapwire/internal/taperr"
)

const maxRequestBytes = 64 << 10

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{"ok": true, "version": s.version}
	if s.liveness != nil {
		if last := s.liveness.LastSweep(); !last.IsZero() {
			payload["last_sweep"] = last
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	caps, err := s.device.Capabilities(r.Context())
	if err != nil {
		writeError(w, taperr.Wrap(taperr.CodeHardwareUnsupported, "query nfc capabilities", err))
		return
	}
	writeJSON(w, http.StatusOK, caps)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

type enableModeRequest struct {
	Mode        string          `json:"mode"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	OrderID     string          `json:"order_id"`
	Message     string          `json:"message"`
	Share       bool            `json:"share"`
}

func (s *Server) handleEnableMode(w http.ResponseWriter, r *http.Request) {
	var req enableModeRequest
	if err := decodeJSON(w, r, &req, maxRequestBytes); err != nil {
		writeError(w, taperr.InvalidPayload("malformed request body"))
		return
	}
	mode, ok := nfc.ParseMode(req.Mode)
	if !ok {
		writeError(w, taperr.InvalidPayload("unknown nfc mode"))
		return
	}
	if req.Amount.IsNegative() {
		writeError(w, taperr.InvalidPayload("amount must not be negative"))
		return
	}

	params := session.Params{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		OrderID:     req.OrderID,
		Message:     req.Message,
		Share:       req.Share,
	}
	if err := s.controller.EnableMode(r.Context(), mode, params); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleDisableMode(w http.ResponseWriter, r *http.Request) {
	s.controller.StopCurrentOperation()
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

type injectTagRequest struct {
	Payload []byte `json:"payload"`
}

func (s *Server) handleInjectTag(w http.ResponseWriter, r *http.Request) {
	var req injectTagRequest
	if err := decodeJSON(w, r, &req, maxRequestBytes); err != nil {
		writeError(w, taperr.InvalidPayload("malformed request body"))
		return
	}
	if len(req.Payload) == 0 {
		writeError(w, taperr.InvalidPayload("payload is required"))
		return
	}
	delivered := s.injector.Inject(req.Payload)
	writeJSON(w, http.StatusOK, map[string]bool{"delivered": delivered})
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.store.ListContacts(r.Context())
	if err != nil {
		writeError(w, taperr.StorageUnavailable("list contacts", err))
		return
	}
	if contacts == nil {
		contacts = []store.Contact{}
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.DeleteContact(r.Context(), id)
	if err == store.ErrNotFound {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}
	if err != nil {
		writeError(w, taperr.StorageUnavailable("delete contact", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleListTaps(w http.ResponseWriter, r *http.Request) {
	taps, err := s.store.ListTaps(r.Context())
	if err != nil {
		writeError(w, taperr.StorageUnavailable("list taps", err))
		return
	}
	if taps == nil {
		taps = []store.TapRecord{}
	}
	writeJSON(w, http.StatusOK, taps)
}
