package services

import (
	"context"
	"testing"

	"github.com/poofware/fleet-service/internal/utils"
	"github.com/poofware/fleet-service/internal/utils/traccar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedAlert struct {
	subject, plain, html string
}

type fakeAlertSender struct {
	sent []recordedAlert
}

func (s *fakeAlertSender) SendAlert(ctx context.Context, subject, plain, html string) error {
	s.sent = append(s.sent, recordedAlert{subject, plain, html})
	return nil
}

func TestRenew_AppendsAndSyncsAssigned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.boitier(t, 1)
	_, err := f.vehicles.Assign(ctx, testAuth, VehicleInput{Matricule: "AB-123-CD", ClientID: f.client(t), BoitierIDs: []int64{id}})
	require.NoError(t, err)
	f.gw.Calls = nil

	resp, err := f.subs.Renew(ctx, testAuth, id, days(60), days(425))
	require.NoError(t, err)

	assert.Len(t, resp.Subscriptions, 2)
	assert.Equal(t, "1 year 1 month 29 day", resp.TimeLeft)
	require.Equal(t, 1, f.gw.Count(traccar.OpUpdate))
	assert.Equal(t, days(425), f.gw.Calls[0].Device.ExpirationTime)
}

func TestRenew_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.boitier(t, 1)

	_, err := f.subs.Renew(ctx, testAuth, id, days(-2), days(30))
	requireCode(t, err, utils.ErrCodeDate)

	_, err = f.subs.Renew(ctx, testAuth, 999, days(1), days(30))
	requireCode(t, err, utils.ErrCodeNotFound)

	_, err = f.vehicles.Assign(ctx, testAuth, VehicleInput{Matricule: "AB-123-CD", ClientID: f.client(t), BoitierIDs: []int64{id}})
	require.NoError(t, err)
	f.gw.FailUpdate = true
	_, err = f.subs.Renew(ctx, testAuth, id, days(60), days(90))
	requireCode(t, err, utils.ErrCodeRemoteSync)

	subs, _ := f.uow.Subscriptions().ListByBoitierID(ctx, id)
	assert.Len(t, subs, 1, "failed renewal is rolled back")
}

func TestSummaryAndSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	current := f.boitier(t, 1) // ends in 60 days
	closeID := f.boitier(t, 2)
	expired := f.boitier(t, 3)

	setEnd := func(boitierID int64, n int) {
		sub := f.uow.State.Subs[f.currentSubID(t, boitierID)]
		sub.StartDate, sub.EndDate = days(n-30), days(n)
		f.uow.State.Subs[sub.ID] = sub
	}
	setEnd(closeID, 10)
	setEnd(expired, 0)

	summary, err := f.subs.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Current)
	assert.Equal(t, 1, summary.Close)
	assert.Equal(t, 1, summary.Left)
	assert.Equal(t, 3, summary.Total)

	expiring, err := f.subs.Expiring(ctx, "")
	require.NoError(t, err)
	assert.Len(t, expiring, 2)
	onlyLeft, err := f.subs.Expiring(ctx, utils.TimeLeftLeft)
	require.NoError(t, err)
	require.Len(t, onlyLeft, 1)
	assert.Equal(t, expired, onlyLeft[0].BoitierID)

	alerts := &fakeAlertSender{}
	f.subs.alerts = alerts
	report, err := f.subs.SweepExpiryAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, report.Close, 1)
	assert.Equal(t, closeID, report.Close[0].BoitierID)
	require.Len(t, report.Left, 1)
	assert.Equal(t, expired, report.Left[0].BoitierID)
	assert.NotEqual(t, current, report.Close[0].BoitierID)

	require.Len(t, alerts.sent, 1)
	assert.Equal(t, "Fleet subscriptions: 1 expiring soon, 1 expired", alerts.sent[0].subject)
	assert.Contains(t, alerts.sent[0].plain, "10 day")
	assert.Contains(t, alerts.sent[0].plain, "0 day")
}

func TestSweep_NothingToReport(t *testing.T) {
	f := newFixture(t)
	f.boitier(t, 1)
	alerts := &fakeAlertSender{}
	f.subs.alerts = alerts

	_, err := f.subs.SweepExpiryAlerts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts.sent)
}

func TestClassify(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		end      int
		timeLeft string
		status   utils.TimeLeftStatus
	}{
		{0, "0 day", utils.TimeLeftLeft},
		{-3, "0 day", utils.TimeLeftLeft},
		{10, "10 day", utils.TimeLeftClose},
		{40, "1 month 9 day", utils.TimeLeftCurrent},
	}
	for _, tc := range tests {
		got := f.subs.Classify(days(tc.end))
		assert.Equal(t, tc.timeLeft, got.TimeLeft)
		assert.Equal(t, string(tc.status), got.Status)
	}
}
