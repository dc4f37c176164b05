// Package notify provides a multi-channel notification system. Notifications
// are dispatched to all registered senders (Telegram, Discord) and can be
// filtered by event type so operators receive only the alerts they care
// about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oddsight/oddsight/internal/domain"
)

// Event types emitted by the schedulers.
const (
	EventHighEV     = "high_ev"
	EventScanFailed = "scan_failed"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. It maintains a
// set of allowed event types; events outside the set are dropped silently.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event types
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders.
// Only events whose type appears in the events slice will be forwarded. If
// events is empty, all event types are allowed.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// NotifyHighEV announces one scored edge that cleared the alert threshold.
func (n *Notifier) NotifyHighEV(ctx context.Context, rec domain.EVRecord) error {
	subject := rec.PlayerName
	if subject == "" {
		subject = rec.Matchup()
	}
	title := fmt.Sprintf("+EV %.1f%%: %s %s %s",
		rec.EVPercent, subject, rec.Side, domain.FormatLine(rec.Line))

	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s\n", rec.Sport, rec.Matchup())
	fmt.Fprintf(&b, "Market: %s %s %s\n", rec.MarketKey, rec.Side, domain.FormatLine(rec.Line))
	fmt.Fprintf(&b, "Best: %s at %s\n", rec.BestBook, FormatAmerican(rec.BestOdds))
	fmt.Fprintf(&b, "Fair: %.1f%% | EV: $%.2f per $100 | Confidence: %s (%d books)",
		rec.FairProbability*100, rec.EVDollars, rec.Confidence, rec.BooksUsed)

	return n.notify(ctx, EventHighEV, title, b.String())
}

// NotifyScanFailure announces a scheduler cycle that could not complete.
func (n *Notifier) NotifyScanFailure(ctx context.Context, kind string, failure error) error {
	title := fmt.Sprintf("Scan failed: %s", kind)
	return n.notify(ctx, EventScanFailed, title, failure.Error())
}

// notify sends to all senders if the event type is allowed.
func (n *Notifier) notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// dispatch iterates over all senders and sends the notification. Errors from
// individual senders are collected and returned as a combined error; a
// single sender failure does not prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// FormatAmerican renders an American price with its conventional sign
// ("+120", "-110").
func FormatAmerican(price int) string {
	if price > 0 {
		return fmt.Sprintf("+%d", price)
	}
	return fmt.Sprintf("%d", price)
}
