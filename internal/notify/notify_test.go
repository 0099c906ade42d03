package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chartwatch/internal/config"
	"chartwatch/internal/models"
)

type recordingChannel struct {
	name     string
	enabled  bool
	received []Notification
}

func (r *recordingChannel) Name() string    { return r.name }
func (r *recordingChannel) IsEnabled() bool { return r.enabled }
func (r *recordingChannel) Send(ctx context.Context, n Notification) error {
	r.received = append(r.received, n)
	return nil
}

func sampleConsensus() *models.Consensus {
	return &models.Consensus{
		HasChanges:        true,
		AlertLevel:        models.AlertHigh,
		Summary:           "Breakout above resistance",
		AvgProbability:    78.5,
		MinProbability:    70,
		MaxProbability:    85,
		ConfidenceLevel:   "high",
		ProviderCount:     3,
		ProviderAgreement: 66.7,
	}
}

func TestMultiNotifierLevelFilter(t *testing.T) {
	mn := NewMultiNotifier(&config.NotificationConfig{Level: "alerts_only"})
	ch := &recordingChannel{name: "fake", enabled: true}
	mn.AddChannel(ch)
	ctx := context.Background()

	if err := mn.SendRunSummary(ctx, "SPY", sampleConsensus()); err != nil {
		t.Fatalf("SendRunSummary: %v", err)
	}
	if len(ch.received) != 0 {
		t.Fatal("alerts_only must drop run summaries")
	}

	if err := mn.SendTrendAlert(ctx, "SPY", sampleConsensus(), nil, ""); err != nil {
		t.Fatalf("SendTrendAlert: %v", err)
	}
	if len(ch.received) != 1 {
		t.Fatalf("alert not delivered: %d notifications", len(ch.received))
	}
}

func TestMultiNotifierErrorsOnly(t *testing.T) {
	mn := NewMultiNotifier(&config.NotificationConfig{Level: "errors_only"})
	ch := &recordingChannel{name: "fake", enabled: true}
	mn.AddChannel(ch)
	ctx := context.Background()

	mn.SendTrendAlert(ctx, "SPY", sampleConsensus(), nil, "")
	if len(ch.received) != 0 {
		t.Fatal("errors_only must drop alerts")
	}

	mn.SendError(ctx, context.DeadlineExceeded, "analysis")
	if len(ch.received) != 1 {
		t.Fatalf("error not delivered: %d notifications", len(ch.received))
	}
	if ch.received[0].Type != NotificationError {
		t.Errorf("type = %s, want error", ch.received[0].Type)
	}
}

func TestSendTrendAlertContent(t *testing.T) {
	mn := NewMultiNotifier(&config.NotificationConfig{})
	ch := &recordingChannel{name: "fake", enabled: true}
	mn.AddChannel(ch)

	change := &models.ChangeAnalysis{
		HasChanges:           true,
		AlertLevel:           models.AlertHigh,
		TrendChangeProb:      82,
		ProbabilityReasoning: "Volume confirms the move",
		KeyChanges:           []string{"EMA cross", "New swing high"},
	}

	err := mn.SendTrendAlert(context.Background(), "SPY", sampleConsensus(), change, "full report body")
	if err != nil {
		t.Fatalf("SendTrendAlert: %v", err)
	}
	if len(ch.received) != 1 {
		t.Fatalf("got %d notifications", len(ch.received))
	}

	n := ch.received[0]
	if !strings.Contains(n.Title, "HIGH") || !strings.Contains(n.Title, "SPY") {
		t.Errorf("title = %q", n.Title)
	}
	for _, want := range []string{
		"Trend Change Probability: 78.5%",
		"Confidence: HIGH",
		"Provider Agreement: 66.7% of 3 providers",
		"Volume confirms the move",
		"- EMA cross",
		"full report body",
	} {
		if !strings.Contains(n.Message, want) {
			t.Errorf("message missing %q", want)
		}
	}
	if n.Data["symbol"] != "SPY" {
		t.Errorf("data symbol = %v", n.Data["symbol"])
	}
}

func TestSendErrorMasksCredentials(t *testing.T) {
	mn := NewMultiNotifier(&config.NotificationConfig{})
	ch := &recordingChannel{name: "fake", enabled: true}
	mn.AddChannel(ch)

	err := errors.New("request failed: api_key=sk-abcdefghijklmnopqrstuvwx status 401")
	if sendErr := mn.SendError(context.Background(), err, "analysis"); sendErr != nil {
		t.Fatalf("SendError: %v", sendErr)
	}
	if len(ch.received) != 1 {
		t.Fatalf("got %d notifications", len(ch.received))
	}

	n := ch.received[0]
	if strings.Contains(n.Message, "sk-abcdefghijklmnopqrstuvwx") {
		t.Errorf("API key not masked in message: %q", n.Message)
	}
	if data, _ := n.Data["error"].(string); strings.Contains(data, "sk-abcdefghijklmnopqrstuvwx") {
		t.Errorf("API key not masked in data: %q", data)
	}
	if !strings.Contains(n.Message, "Context: analysis") {
		t.Errorf("message = %q", n.Message)
	}
}

func TestMultiNotifierSkipsDisabledChannels(t *testing.T) {
	mn := NewMultiNotifier(&config.NotificationConfig{})
	on := &recordingChannel{name: "on", enabled: true}
	off := &recordingChannel{name: "off", enabled: false}
	mn.AddChannel(on)
	mn.AddChannel(off)

	mn.Send(context.Background(), Notification{Type: NotificationInfo, Title: "hi"})
	if len(on.received) != 1 || len(off.received) != 0 {
		t.Errorf("on=%d off=%d", len(on.received), len(off.received))
	}

	names := mn.ChannelNames()
	if len(names) != 1 || names[0] != "on" {
		t.Errorf("ChannelNames = %v", names)
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %s", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.WebhookConfig{Enabled: true, URL: srv.URL})
	err := w.Send(context.Background(), Notification{
		Type:    NotificationAlert,
		Title:   "Trend Alert",
		Message: "body",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["title"] != "Trend Alert" || got["type"] != "alert" {
		t.Errorf("payload = %v", got)
	}
}

func TestWebhookNotifierServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.WebhookConfig{Enabled: true, URL: srv.URL})
	if err := w.Send(context.Background(), Notification{Type: NotificationAlert}); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestWebhookDisabledWithoutURL(t *testing.T) {
	w := NewWebhookNotifier(config.WebhookConfig{Enabled: true})
	if w.IsEnabled() {
		t.Error("webhook without a URL must be disabled")
	}
}

func TestTelegramDisabledWithoutCredentials(t *testing.T) {
	n := NewTelegramNotifier(config.TelegramConfig{Enabled: true, BotToken: "t"})
	if n.IsEnabled() {
		t.Error("telegram without a chat ID must be disabled")
	}
}

func TestEscapeHTML(t *testing.T) {
	if got := escapeHTML("<b>a & b</b>"); got != "&lt;b&gt;a &amp; b&lt;/b&gt;" {
		t.Errorf("escapeHTML = %q", got)
	}
}
