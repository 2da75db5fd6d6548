package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-re/meridian/internal/shared"
)

// Handler exposes report endpoints. Every report supports format=csv for
// download alongside the default JSON body.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the reports HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.trialBalance)
	r.Get("/balance-sheet", h.balanceSheet)
	r.Get("/profit-loss", h.profitAndLoss)
	r.Get("/general-ledger", h.generalLedger)
}

func queryEntity(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("entity_id"), 10, 64)
	return id, err == nil
}

func queryAsOf(r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Now().UTC(), true
	}
	asOf, err := time.Parse("2006-01-02", raw)
	return asOf, err == nil
}

func queryRange(r *http.Request) (time.Time, time.Time, bool) {
	from, errFrom := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	to, errTo := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if errFrom != nil || errTo != nil || to.Before(from) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}

func serveCSV(w http.ResponseWriter, filename string, write func() error) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := write(); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	entityID, ok := queryEntity(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	asOf, ok := queryAsOf(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), entityID, asOf)
	if err != nil {
		h.logger.Error("trial balance", slog.Int64("entity", entityID), slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	if wantsCSV(r) {
		serveCSV(w, "trial-balance.csv", func() error { return WriteTrialBalanceCSV(w, tb) })
		return
	}
	shared.WriteJSON(w, http.StatusOK, tb)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	entityID, ok := queryEntity(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	asOf, ok := queryAsOf(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	bs, err := h.service.BalanceSheet(r.Context(), entityID, asOf)
	if err != nil {
		h.logger.Error("balance sheet", slog.Int64("entity", entityID), slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	if wantsCSV(r) {
		serveCSV(w, "balance-sheet.csv", func() error { return WriteBalanceSheetCSV(w, bs) })
		return
	}
	shared.WriteJSON(w, http.StatusOK, bs)
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	entityID, ok := queryEntity(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	from, to, ok := queryRange(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	pl, err := h.service.ProfitAndLoss(r.Context(), entityID, from, to)
	if err != nil {
		h.logger.Error("profit and loss", slog.Int64("entity", entityID), slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	if wantsCSV(r) {
		serveCSV(w, "profit-loss.csv", func() error { return WriteProfitAndLossCSV(w, pl) })
		return
	}
	shared.WriteJSON(w, http.StatusOK, pl)
}

func (h *Handler) generalLedger(w http.ResponseWriter, r *http.Request) {
	entityID, ok := queryEntity(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	from, to, ok := queryRange(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	var accountIDs []int64
	if raw := r.URL.Query().Get("accounts"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			accountIDs = append(accountIDs, id)
		}
	}
	gl, err := h.service.GeneralLedger(r.Context(), entityID, accountIDs, from, to)
	if err != nil {
		h.logger.Error("general ledger", slog.Int64("entity", entityID), slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	if wantsCSV(r) {
		serveCSV(w, "general-ledger.csv", func() error { return WriteGeneralLedgerCSV(w, gl) })
		return
	}
	shared.WriteJSON(w, http.StatusOK, gl)
}
