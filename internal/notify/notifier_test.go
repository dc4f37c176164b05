package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsight/oddsight/internal/domain"
)

type recordingSender struct {
	name     string
	titles   []string
	messages []string
	fail     error
}

func (r *recordingSender) Send(_ context.Context, title, message string) error {
	if r.fail != nil {
		return r.fail
	}
	r.titles = append(r.titles, title)
	r.messages = append(r.messages, message)
	return nil
}

func (r *recordingSender) Name() string { return r.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRecord() domain.EVRecord {
	return domain.EVRecord{
		Selection: domain.Selection{
			Sport:      "basketball_nba",
			EventID:    "evt-1",
			HomeTeam:   "Boston Celtics",
			AwayTeam:   "New York Knicks",
			PlayerName: "Jayson Tatum",
			MarketKey:  "player_points",
			Line:       27.5,
		},
		Side:            domain.SideOver,
		EVPercent:       10,
		EVDollars:       10,
		BestBook:        "fanduel",
		BestOdds:        120,
		FairProbability: 0.5,
		Confidence:      domain.ConfidenceHigh,
		BooksUsed:       4,
		CreatedAt:       time.Now(),
	}
}

func TestNotifyHighEVFormatsSelection(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, nil, discardLogger())

	require.NoError(t, n.NotifyHighEV(context.Background(), sampleRecord()))

	require.Len(t, sender.titles, 1)
	assert.Contains(t, sender.titles[0], "Jayson Tatum")
	assert.Contains(t, sender.titles[0], "10.0%")
	assert.Contains(t, sender.messages[0], "fanduel at +120")
	assert.Contains(t, sender.messages[0], "Boston Celtics vs New York Knicks")
}

func TestNotifierFiltersDisallowedEvents(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, []string{EventScanFailed}, discardLogger())

	require.NoError(t, n.NotifyHighEV(context.Background(), sampleRecord()))
	assert.Empty(t, sender.titles, "high_ev must be filtered out")

	require.NoError(t, n.NotifyScanFailure(context.Background(), "ev", errors.New("boom")))
	require.Len(t, sender.titles, 1)
	assert.Contains(t, sender.titles[0], "Scan failed: ev")
}

func TestDispatchContinuesPastFailedSender(t *testing.T) {
	bad := &recordingSender{name: "bad", fail: errors.New("unreachable")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.NotifyScanFailure(context.Background(), "mispriced", errors.New("boom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Len(t, good.titles, 1, "remaining senders still receive the message")
}

func TestFormatAmerican(t *testing.T) {
	assert.Equal(t, "+120", FormatAmerican(120))
	assert.Equal(t, "-110", FormatAmerican(-110))
}
