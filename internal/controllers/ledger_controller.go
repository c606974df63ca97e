package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/poofware/fleet-service/internal/constants"
	"github.com/poofware/fleet-service/internal/models"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/services"
	"github.com/poofware/fleet-service/internal/utils"
)

type LedgerController struct {
	ledger *services.LedgerService
}

func NewLedgerController(s *services.LedgerService) *LedgerController {
	return &LedgerController{ledger: s}
}

// ledgerFilterFromQuery reads ?kind=&category=&from=&to=. It writes the
// error response itself and returns false on failure.
func ledgerFilterFromQuery(w http.ResponseWriter, r *http.Request) (repositories.LedgerFilter, bool) {
	q := r.URL.Query()
	f := repositories.LedgerFilter{Category: q.Get("category")}
	if raw := q.Get("kind"); raw != "" {
		kind, ok := models.ParseUnitKind(raw)
		if !ok {
			badQuery(w, "kind", fmt.Errorf("unknown unit kind %q", raw))
			return f, false
		}
		f.Kind = kind
	}
	for key, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		t, err := utils.ParseDate(raw)
		if err != nil {
			badQuery(w, key, err)
			return f, false
		}
		*dst = t
	}
	return f, true
}

// GET /api/v1/fleet/stock-ledger
func (c *LedgerController) ListHandler(w http.ResponseWriter, r *http.Request) {
	f, ok := ledgerFilterFromQuery(w, r)
	if !ok {
		return
	}
	rows, err := c.ledger.List(r.Context(), f)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rows)
}

// GET /api/v1/fleet/stock-ledger/export
func (c *LedgerController) ExportHandler(w http.ResponseWriter, r *http.Request) {
	f, ok := ledgerFilterFromQuery(w, r)
	if !ok {
		return
	}
	body, err := c.ledger.ExportXLSX(r.Context(), f)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", constants.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", constants.LedgerExportFilename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		utils.Logger.WithError(err).Warn("failed to write ledger export")
	}
}
