package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/iwvelando/debt-snowball/internal/config"
	"github.com/iwvelando/debt-snowball/internal/store"
	"go.uber.org/zap"
)

type debtSetRequest struct {
	ExtraPayment float64             `json:"extraPayment"`
	Debts        []config.DebtConfig `json:"debts"`
}

func (h *handler) handleDebtSets(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDebtSets"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if h.store == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, store.ErrDisabled.Error(), op)
		return
	}

	infos, err := h.store.List(r.Context())
	if err != nil {
		h.respondFailure(w, storeFailure(err), op)
		return
	}
	if infos == nil {
		infos = []store.SetInfo{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"debtSets": infos})
}

func (h *handler) handleDebtSet(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDebtSet"
	if h.store == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, store.ErrDisabled.Error(), op)
		return
	}
	name := r.PathValue("name")

	switch r.Method {
	case http.MethodGet:
		set, err := h.store.Get(r.Context(), name)
		if err != nil {
			h.respondFailure(w, storeFailure(err), op)
			return
		}
		h.writeJSON(w, http.StatusOK, set)

	case http.MethodPut:
		var payload debtSetRequest
		if err := h.decodeJSON(w, r, &payload); err != nil {
			h.respondFailure(w, err, op)
			return
		}
		set := store.DebtSet{Name: name, ExtraPayment: payload.ExtraPayment, Debts: debtRecords(payload.Debts)}
		if err := h.store.Save(r.Context(), set); err != nil {
			h.respondFailure(w, storeFailure(err), op)
			return
		}
		saved, err := h.store.Get(r.Context(), name)
		if err != nil {
			h.respondFailure(w, storeFailure(err), op)
			return
		}
		h.logger.Info("debt set saved",
			zap.String("op", op),
			zap.String("name", name),
			zap.Int("debts", len(saved.Debts)),
		)
		h.writeJSON(w, http.StatusOK, saved)

	case http.MethodDelete:
		if err := h.store.Delete(r.Context(), name); err != nil {
			h.respondFailure(w, storeFailure(err), op)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func storeFailure(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &statusError{status: http.StatusNotFound, err: err}
	case errors.Is(err, store.ErrInvalidSet), errors.Is(err, store.ErrInvalidName):
		return badRequest(err)
	}
	return &statusError{status: http.StatusInternalServerError, err: fmt.Errorf("storage failure: %w", err)}
}
