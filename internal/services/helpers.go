package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/utils"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// insertError maps a failed insert to a conflict on field when a unique
// constraint rejected it, and to an internal error otherwise.
func insertError(field, what string, err error) error {
	if repositories.IsUniqueViolation(err) {
		return utils.NewConflictError(field, fmt.Sprintf("%s conflicts with an existing record", what))
	}
	return utils.NewInternalError("failed to create "+what, err)
}

// validateSubscriptionDates enforces start < end, and start >= today when
// checkStart is set.
func validateSubscriptionDates(start, end, today time.Time, checkStart bool) error {
	if start.IsZero() {
		return utils.NewDateError("start_date", "start_date is required")
	}
	if end.IsZero() {
		return utils.NewDateError("end_date", "end_date is required")
	}
	start, end = utils.DateOf(start), utils.DateOf(end)
	if !start.Before(end) {
		return utils.NewDateError("end_date", fmt.Sprintf("end_date %s must be after start_date %s",
			end.Format(utils.DateLayout), start.Format(utils.DateLayout)))
	}
	if checkStart && start.Before(today) {
		return utils.NewDateError("start_date", fmt.Sprintf("start_date %s is in the past",
			start.Format(utils.DateLayout)))
	}
	return nil
}
