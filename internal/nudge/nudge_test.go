package nudge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
)

type fakeSender struct {
	mu       sync.Mutex
	opened   []string
	posted   []string
	failUser string
}

func (f *fakeSender) OpenConversationContext(ctx context.Context, params *slack.OpenConversationParameters) (*slack.Channel, bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := params.Users[0]
	if user == f.failUser {
		return nil, false, false, errors.New("cannot_dm_bot")
	}
	f.opened = append(f.opened, user)
	ch := &slack.Channel{}
	ch.ID = "D" + user
	return ch, false, false, nil
}

func (f *fakeSender) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, channelID)
	return channelID, "ts", nil
}

type fakeResolver struct {
	ids        []string
	unresolved []string
	err        error
}

func (f fakeResolver) ResolveUserIDs(ctx context.Context, identifiers []string) ([]string, []string, error) {
	return f.ids, f.unresolved, f.err
}

func TestParseSchedule(t *testing.T) {
	if _, err := ParseSchedule("0 10 * * 1-5"); err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}
	for _, bad := range []string{"", "every day", "0 10 * *", "* * * * * *"} {
		if _, err := ParseSchedule(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestNextSkipsWeekend(t *testing.T) {
	s, err := NewScheduler(Options{Schedule: "0 10 * * 1-5", Location: time.UTC})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	friday := time.Date(2026, 3, 6, 11, 0, 0, 0, time.UTC)
	want := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	if got := s.Next(friday); !got.Equal(want) {
		t.Fatalf("Next(friday 11:00) = %s, want %s", got, want)
	}
	morning := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	if got := s.Next(morning); !got.Equal(morning.Add(time.Hour)) {
		t.Fatalf("Next(wed 09:00) = %s", got)
	}
}

func TestSendNudges(t *testing.T) {
	sender := &fakeSender{failUser: "U3"}
	s, err := NewScheduler(Options{
		Schedule:        "0 10 * * 1-5",
		Location:        time.UTC,
		TeamMembers:     []string{"alice", "bob", "carol", "dave"},
		ReportChannelID: "C123",
		Sender:          sender,
		Resolver:        fakeResolver{ids: []string{"U1", "U2", "U3"}, unresolved: []string{"dave"}},
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	sent, err := s.SendNudges(context.Background())
	if sent != 2 {
		t.Fatalf("expected 2 nudges, got %d", sent)
	}
	if err == nil || !strings.Contains(err.Error(), "cannot_dm_bot") {
		t.Fatalf("expected first delivery error, got %v", err)
	}
	if strings.Join(sender.posted, ",") != "DU1,DU2" {
		t.Fatalf("unexpected DMs: %v", sender.posted)
	}
	if msg := s.message(); !strings.Contains(msg, "/standup") || !strings.Contains(msg, "<#C123>") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestSendNudgesResolveFailure(t *testing.T) {
	s, err := NewScheduler(Options{
		Schedule:    "0 10 * * 1-5",
		TeamMembers: []string{"alice"},
		Sender:      &fakeSender{},
		Resolver:    fakeResolver{err: errors.New("ratelimited"), unresolved: []string{"alice"}},
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if _, err := s.SendNudges(context.Background()); err == nil {
		t.Fatal("expected resolve error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := NewScheduler(Options{
		Schedule:    "0 10 * * 1-5",
		TeamMembers: []string{"U1"},
		Sender:      &fakeSender{},
		Resolver:    fakeResolver{ids: []string{"U1"}},
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunWithoutMembersReturns(t *testing.T) {
	s, err := NewScheduler(Options{Schedule: "0 10 * * 1-5"})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
