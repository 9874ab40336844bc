package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayops-systems/sentinel/internal/models"
)

type fakeChannel struct {
	kind models.AlertChannel
	sent []*models.Alert
	err  error
}

func (f *fakeChannel) Type() models.AlertChannel { return f.kind }

func (f *fakeChannel) Send(_ context.Context, alert *models.Alert) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, alert)
	return nil
}

func testAlert(severity models.IncidentSeverity) *models.Alert {
	return &models.Alert{
		ID:        "alert-1",
		ThreatID:  "threat-1",
		Severity:  severity,
		Title:     "Security alert: brute_force",
		Message:   "brute_force detected with risk score 95 (confidence 85)",
		RiskScore: 95,
		CreatedAt: time.Now().UTC(),
	}
}

func TestDispatch_RoutesBySeverity(t *testing.T) {
	dashboard := &fakeChannel{kind: models.ChannelDashboard}
	webhook := &fakeChannel{kind: models.ChannelWebhook}
	slack := &fakeChannel{kind: models.ChannelSlack}
	d := NewDispatcher([]Channel{dashboard, webhook, slack}, nil, nil)

	require.NoError(t, d.Dispatch(context.Background(), testAlert(models.SeverityCritical)))
	assert.Len(t, dashboard.sent, 1)
	assert.Len(t, webhook.sent, 1)
	assert.Len(t, slack.sent, 1)

	require.NoError(t, d.Dispatch(context.Background(), testAlert(models.SeverityMedium)))
	assert.Len(t, dashboard.sent, 2)
	assert.Len(t, webhook.sent, 2)
	assert.Len(t, slack.sent, 1)

	require.NoError(t, d.Dispatch(context.Background(), testAlert(models.SeverityLow)))
	assert.Len(t, dashboard.sent, 3)
	assert.Len(t, webhook.sent, 2)
	assert.Len(t, slack.sent, 1)
}

func TestDispatch_FailedChannelDoesNotBlockOthers(t *testing.T) {
	dashboard := &fakeChannel{kind: models.ChannelDashboard, err: errors.New("bus unavailable")}
	webhook := &fakeChannel{kind: models.ChannelWebhook}
	d := NewDispatcher([]Channel{dashboard, webhook}, nil, nil)

	require.NoError(t, d.Dispatch(context.Background(), testAlert(models.SeverityHigh)))
	assert.Len(t, webhook.sent, 1)
}

func TestDispatch_AllChannelsFailed(t *testing.T) {
	dashboard := &fakeChannel{kind: models.ChannelDashboard, err: errors.New("bus unavailable")}
	d := NewDispatcher([]Channel{dashboard}, nil, nil)

	err := d.Dispatch(context.Background(), testAlert(models.SeverityLow))
	assert.ErrorContains(t, err, "all alert channels failed")
}

func TestDispatch_NoConfiguredChannelIsNotAnError(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	assert.NoError(t, d.Dispatch(context.Background(), testAlert(models.SeverityCritical)))
}

func TestWebhookChannel(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL, 2*time.Second)
	require.NoError(t, ch.Send(context.Background(), testAlert(models.SeverityHigh)))
	assert.Equal(t, "alert-1", got["alert_id"])
	assert.Equal(t, "high", got["severity"])
	assert.Equal(t, float64(95), got["risk_score"])
}

func TestWebhookChannel_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL, 2*time.Second)
	err := ch.Send(context.Background(), testAlert(models.SeverityHigh))
	assert.ErrorContains(t, err, "status 502")
}

func TestSlackChannel(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewSlackChannel(srv.URL, 2*time.Second)
	require.NoError(t, ch.Send(context.Background(), testAlert(models.SeverityCritical)))
	assert.Contains(t, got["text"], "Security alert")
	attachments, ok := got["attachments"].([]interface{})
	require.True(t, ok)
	require.Len(t, attachments, 1)
	assert.Equal(t, "#8B0000", attachments[0].(map[string]interface{})["color"])
}

type fakePublisher struct {
	subjects []string
	payloads []interface{}
	err      error
}

func (f *fakePublisher) PublishJSON(_ context.Context, subject string, data interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func TestDashboardChannel(t *testing.T) {
	pub := &fakePublisher{}
	ch := NewDashboardChannel(pub, "sentinel.alerts.created")

	require.NoError(t, ch.Send(context.Background(), testAlert(models.SeverityLow)))
	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "sentinel.alerts.created", pub.subjects[0])

	pub.err = errors.New("connection closed")
	assert.ErrorContains(t, ch.Send(context.Background(), testAlert(models.SeverityLow)), "publish dashboard alert")
}
