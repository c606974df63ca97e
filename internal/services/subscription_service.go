package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/poofware/fleet-service/internal/config"
	"github.com/poofware/fleet-service/internal/constants"
	"github.com/poofware/fleet-service/internal/dtos"
	"github.com/poofware/fleet-service/internal/metrics"
	"github.com/poofware/fleet-service/internal/models"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/utils"
	"github.com/poofware/fleet-service/internal/utils/traccar"
	"github.com/sirupsen/logrus"
)

type SubscriptionService struct {
	uow     repositories.UnitOfWork
	gateway traccar.Gateway
	alerts  AlertSender
	cfg     *config.Config
	today   func() time.Time
}

func NewSubscriptionService(cfg *config.Config, uow repositories.UnitOfWork, gateway traccar.Gateway, alerts AlertSender) *SubscriptionService {
	return &SubscriptionService{
		uow:     uow,
		gateway: gateway,
		alerts:  alerts,
		cfg:     cfg,
		today:   todayIn(cfg),
	}
}

// Renew appends a subscription to a boitier. When the boitier is mounted,
// the platform record gets the new expiry before the local commit.
func (s *SubscriptionService) Renew(ctx context.Context, authHeader string, boitierID int64, start, end time.Time) (*dtos.BoitierResponse, error) {
	if err := validateSubscriptionDates(start, end, s.today(), true); err != nil {
		return nil, err
	}

	var details *models.BoitierDetails
	err := s.uow.WithinTx(ctx, func(tx repositories.Store) error {
		b, err := lockBoitier(ctx, tx, boitierID)
		if err != nil {
			return err
		}
		sub := &models.Subscription{BoitierID: b.ID, StartDate: utils.DateOf(start), EndDate: utils.DateOf(end)}
		if err := tx.Subscriptions().Create(ctx, sub); err != nil {
			return utils.NewInternalError("failed to create subscription", err)
		}
		if details, err = loadBoitierDetails(ctx, tx, b); err != nil {
			return err
		}

		if !b.IsAssigned() {
			return nil
		}
		vehicle, err := tx.Vehicles().GetByID(ctx, *b.VehicleID)
		if err != nil {
			return utils.NewInternalError("failed to load vehicle", err)
		}
		if vehicle == nil {
			return utils.NewNotFoundError("vehicle_id", fmt.Sprintf("vehicle %d not found", *b.VehicleID))
		}
		remoteID, err := pushRemoteDevice(ctx, s.gateway, authHeader, vehicle.Matricule, details)
		if err != nil {
			return err
		}
		if details.TraccarID == nil || *details.TraccarID != remoteID {
			details.TraccarID = &remoteID
			if err := tx.Boitiers().Update(ctx, &details.Boitier); err != nil {
				return utils.NewInternalError("failed to update boitier", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.WithFields(logrus.Fields{
		"boitier_id": boitierID,
		"end_date":   utils.DateOf(end).Format(utils.DateLayout),
	}).Info("subscription renewed")
	return toBoitierResponse(details, s.today()), nil
}

// Classify exposes the time-left classifier for one end date.
func (s *SubscriptionService) Classify(endDate time.Time) dtos.ClassifyResponse {
	timeLeft, status := utils.ClassifyTimeLeft(endDate, s.today())
	return dtos.ClassifyResponse{EndDate: utils.NewDate(endDate), TimeLeft: timeLeft, Status: string(status)}
}

// ExpiryReport is the fleet-wide classification of current subscriptions.
type ExpiryReport struct {
	Summary dtos.SubscriptionSummaryResponse
	Close   []dtos.ExpiringBoitier
	Left    []dtos.ExpiringBoitier
}

// Summary counts current subscriptions (one per boitier) by time-left status.
func (s *SubscriptionService) Summary(ctx context.Context) (*dtos.SubscriptionSummaryResponse, error) {
	report, err := s.report(ctx)
	if err != nil {
		return nil, err
	}
	return &report.Summary, nil
}

// Expiring lists the boitiers whose current subscription has the given
// status. Current subscriptions are not listed.
func (s *SubscriptionService) Expiring(ctx context.Context, status utils.TimeLeftStatus) ([]dtos.ExpiringBoitier, error) {
	report, err := s.report(ctx)
	if err != nil {
		return nil, err
	}
	var out []dtos.ExpiringBoitier
	switch status {
	case utils.TimeLeftClose:
		out = report.Close
	case utils.TimeLeftLeft:
		out = report.Left
	default:
		out = append(append(out, report.Close...), report.Left...)
	}
	return nonNil(out), nil
}

func (s *SubscriptionService) report(ctx context.Context) (*ExpiryReport, error) {
	ends, err := s.uow.Subscriptions().ListCurrentEnds(ctx)
	if err != nil {
		return nil, utils.NewInternalError("failed to load subscriptions", err)
	}

	today := s.today()
	report := &ExpiryReport{}
	for _, e := range ends {
		timeLeft, status := utils.ClassifyTimeLeft(e.EndDate, today)
		line := dtos.ExpiringBoitier{BoitierID: e.BoitierID, EndDate: utils.NewDate(e.EndDate), TimeLeft: timeLeft}
		switch status {
		case utils.TimeLeftCurrent:
			report.Summary.Current++
		case utils.TimeLeftClose:
			report.Summary.Close++
			report.Close = append(report.Close, line)
		case utils.TimeLeftLeft:
			report.Summary.Left++
			report.Left = append(report.Left, line)
		}
	}
	report.Summary.Total = len(ends)
	return report, nil
}

// SweepExpiryAlerts refreshes the subscription gauges and mails the lists of
// expiring and expired boitiers. It never writes to the store.
func (s *SubscriptionService) SweepExpiryAlerts(ctx context.Context) (*ExpiryReport, error) {
	report, err := s.report(ctx)
	if err != nil {
		return nil, err
	}

	metrics.Subscriptions.WithLabelValues(string(utils.TimeLeftCurrent)).Set(float64(report.Summary.Current))
	metrics.Subscriptions.WithLabelValues(string(utils.TimeLeftClose)).Set(float64(report.Summary.Close))
	metrics.Subscriptions.WithLabelValues(string(utils.TimeLeftLeft)).Set(float64(report.Summary.Left))

	utils.Logger.WithFields(logrus.Fields{
		"current": report.Summary.Current,
		"close":   report.Summary.Close,
		"left":    report.Summary.Left,
	}).Info("subscription expiry sweep")

	if s.alerts == nil || (len(report.Close) == 0 && len(report.Left) == 0) {
		return report, nil
	}

	subject := fmt.Sprintf(constants.EmailSubjectExpiryAlert, len(report.Close), len(report.Left))
	plain, htmlBody := renderExpiryAlert(report)
	if err := s.alerts.SendAlert(ctx, subject, plain, htmlBody); err != nil {
		utils.Logger.WithError(err).Error("Failed to send expiry alert email")
		return report, err
	}
	return report, nil
}

func renderExpiryAlert(r *ExpiryReport) (string, string) {
	var plain, rich strings.Builder
	section := func(title string, lines []dtos.ExpiringBoitier) {
		if len(lines) == 0 {
			return
		}
		fmt.Fprintf(&plain, "%s:\n", title)
		fmt.Fprintf(&rich, "<h3>%s</h3><ul>", html.EscapeString(title))
		for _, l := range lines {
			end := l.EndDate.Format(utils.DateLayout)
			fmt.Fprintf(&plain, "  boitier %d ends %s (%s)\n", l.BoitierID, end, l.TimeLeft)
			fmt.Fprintf(&rich, "<li>boitier %d ends %s (%s)</li>", l.BoitierID, end, html.EscapeString(l.TimeLeft))
		}
		rich.WriteString("</ul>")
	}
	section("Expiring soon", r.Close)
	section("Expired", r.Left)
	return plain.String(), rich.String()
}
