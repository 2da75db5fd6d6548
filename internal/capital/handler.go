package capital

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/shared"
)

// Handler exposes capital ledger endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the capital HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches capital routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/members", h.members)
	r.Post("/members", h.addMember)
	r.Put("/members/{memberID}/ownership", h.setOwnership)
	r.Get("/members/{memberID}/balance", h.balance)
	r.Post("/transactions", h.post)
	r.Get("/verify", h.verify)
}

type addMemberRequest struct {
	EntityID            int64  `json:"entity_id" validate:"required"`
	Name                string `json:"name" validate:"required"`
	OwnershipPct        string `json:"ownership_pct" validate:"required"`
	InitialContribution string `json:"initial_contribution"`
}

type setOwnershipRequest struct {
	OwnershipPct string `json:"ownership_pct" validate:"required"`
}

type postTransactionRequest struct {
	EntityID int64  `json:"entity_id" validate:"required"`
	MemberID *int64 `json:"member_id"`
	Type     string `json:"type" validate:"required"`
	Amount   string `json:"amount" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Memo     string `json:"memo"`
}

func parseDecimal(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, shared.Validation("capital: " + field + " must be a decimal string")
	}
	return d, nil
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, shared.Validation(err.Error()))
		return
	}
	pct, err := parseDecimal(req.OwnershipPct, "ownership_pct")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	initial, err := parseDecimal(req.InitialContribution, "initial_contribution")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	member, err := h.service.AddMember(r.Context(), Member{
		EntityID:            req.EntityID,
		Name:                req.Name,
		OwnershipPct:        pct,
		InitialContribution: initial,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, member)
}

func (h *Handler) setOwnership(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "memberID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	var req setOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	pct, err := parseDecimal(req.OwnershipPct, "ownership_pct")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	member, err := h.service.SetOwnership(r.Context(), id, pct)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) members(w http.ResponseWriter, r *http.Request) {
	entityID, err := strconv.ParseInt(r.URL.Query().Get("entity_id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	out, err := h.service.Members(r.Context(), entityID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	var req postTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, shared.Validation(err.Error()))
		return
	}
	amount, err := parseDecimal(req.Amount, "amount")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		shared.WriteError(w, shared.Validation("capital: date must be YYYY-MM-DD"))
		return
	}
	txs, err := h.service.PostTransaction(r.Context(), PostInput{
		EntityID: req.EntityID,
		MemberID: req.MemberID,
		Type:     TxType(req.Type),
		Amount:   amount,
		Date:     date,
		Memo:     req.Memo,
	})
	if err != nil {
		h.logger.Warn("post capital", slog.Int64("entity", req.EntityID), slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, txs)
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "memberID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	asOf := time.Now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, err = time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}
	bal, err := h.service.Balance(r.Context(), id, asOf)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"member_id": id, "as_of": asOf.Format("2006-01-02"), "balance": bal})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	entityID, err := strconv.ParseInt(r.URL.Query().Get("entity_id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	asOf := time.Now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, err = time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}
	if err := h.service.VerifyAgainstEquity(r.Context(), entityID, asOf); err != nil {
		h.logger.Error("capital verify", slog.Int64("entity", entityID), slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"entity_id": entityID, "ok": true})
}
