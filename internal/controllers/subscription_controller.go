package controllers

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/poofware/fleet-service/internal/dtos"
	"github.com/poofware/fleet-service/internal/middleware"
	"github.com/poofware/fleet-service/internal/services"
	"github.com/poofware/fleet-service/internal/utils"
)

type SubscriptionController struct {
	subs     *services.SubscriptionService
	validate *validator.Validate
}

func NewSubscriptionController(s *services.SubscriptionService) *SubscriptionController {
	return &SubscriptionController{
		subs:     s,
		validate: validator.New(),
	}
}

// POST /api/v1/fleet/boitiers/{id}/subscriptions
func (c *SubscriptionController) RenewHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dtos.RenewSubscriptionRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	resp, err := c.subs.Renew(r.Context(), middleware.AuthHeaderFromContext(r.Context()), id, req.StartDate.Time, req.EndDate.Time)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

// GET /api/v1/fleet/subscriptions/summary
func (c *SubscriptionController) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := c.subs.Summary(r.Context())
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/fleet/subscriptions/expiring?status=close|left
func (c *SubscriptionController) ExpiringHandler(w http.ResponseWriter, r *http.Request) {
	var status utils.TimeLeftStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := utils.ParseTimeLeftStatus(raw)
		if !ok || parsed == utils.TimeLeftCurrent {
			badQuery(w, "status", fmt.Errorf("status must be close or left, got %q", raw))
			return
		}
		status = parsed
	}
	rows, err := c.subs.Expiring(r.Context(), status)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rows)
}

// GET /api/v1/fleet/subscriptions/classify?end_date=YYYY-MM-DD
func (c *SubscriptionController) ClassifyHandler(w http.ResponseWriter, r *http.Request) {
	end, err := utils.ParseDate(r.URL.Query().Get("end_date"))
	if err != nil {
		badQuery(w, "end_date", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, c.subs.Classify(end))
}
