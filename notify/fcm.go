package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/rustyeddy/marketwatch/journal"
)

const channelID = "marketwatch_alerts"

// multicaster is the part of *messaging.Client we use.
type multicaster interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCM pushes events to a fixed set of device tokens.
type FCM struct {
	client multicaster
	tokens []string
	log    *slog.Logger
}

// NewFCM connects to Firebase with the service account file at credPath.
// An empty credPath or no tokens returns a disabled notifier.
func NewFCM(ctx context.Context, credPath string, tokens []string, log *slog.Logger) (*FCM, error) {
	if log == nil {
		log = slog.Default()
	}
	f := &FCM{tokens: tokens, log: log}
	if credPath == "" || len(tokens) == 0 {
		log.Warn("FCM disabled: no credentials or device tokens configured")
		return f, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credPath))
	if err != nil {
		return nil, fmt.Errorf("notify: initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("notify: getting messaging client: %w", err)
	}

	f.client = client
	log.Info("FCM notifications enabled", "devices", len(tokens))
	return f, nil
}

func (f *FCM) Enabled() bool { return f.client != nil && len(f.tokens) > 0 }

func (f *FCM) PositionOpened(ctx context.Context, p journal.Position) error {
	title := fmt.Sprintf("%s %s triggered", p.Symbol, p.Direction)
	body := fmt.Sprintf("Entry %s  Stop %s  Target %s", num(p.Entry), num(p.Stop), num(p.Target))
	return f.send(ctx, title, body, map[string]string{
		"event":     "opened",
		"id":        p.ID,
		"symbol":    string(p.Symbol),
		"direction": string(p.Direction),
		"entry":     num(p.Entry),
	})
}

func (f *FCM) TradeClosed(ctx context.Context, t journal.ClosedTrade) error {
	title := fmt.Sprintf("%s %s", t.Symbol, t.Status)
	body := fmt.Sprintf("Exit %s  P&L %.2f%%", num(t.Exit), t.PnLPct)
	return f.send(ctx, title, body, map[string]string{
		"event":   "closed",
		"id":      t.ID,
		"symbol":  string(t.Symbol),
		"status":  string(t.Status),
		"pnl_pct": strconv.FormatFloat(t.PnLPct, 'f', 2, 64),
	})
}

func (f *FCM) send(ctx context.Context, title, body string, data map[string]string) error {
	if !f.Enabled() {
		return nil
	}

	msg := &messaging.MulticastMessage{
		Tokens: f.tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: channelID,
				Priority:  messaging.PriorityHigh,
			},
		},
	}

	resp, err := f.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return fmt.Errorf("notify: sending multicast: %w", err)
	}
	if resp.FailureCount > 0 {
		f.log.Warn("some FCM messages failed", "success", resp.SuccessCount, "failure", resp.FailureCount)
	}
	return nil
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
