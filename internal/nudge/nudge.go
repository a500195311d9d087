// Package nudge DMs team members a reminder to post their standup.
package nudge

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// Sender is the part of the Slack client used to deliver DMs.
type Sender interface {
	OpenConversationContext(ctx context.Context, params *slack.OpenConversationParameters) (*slack.Channel, bool, bool, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Resolver maps configured team members to Slack user ids.
type Resolver interface {
	ResolveUserIDs(ctx context.Context, identifiers []string) ([]string, []string, error)
}

// ParseSchedule parses a standard five-field cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid nudge_schedule '%s': %w", spec, err)
	}
	return sched, nil
}

type Options struct {
	Schedule        string
	Location        *time.Location
	TeamMembers     []string
	ReportChannelID string
	Sender          Sender
	Resolver        Resolver
	Logger          *zap.Logger
}

type Scheduler struct {
	sched     cron.Schedule
	loc       *time.Location
	members   []string
	channelID string
	sender    Sender
	resolver  Resolver
	logger    *zap.Logger
	now       func() time.Time
}

func NewScheduler(opts Options) (*Scheduler, error) {
	sched, err := ParseSchedule(opts.Schedule)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		sched:     sched,
		loc:       opts.Location,
		members:   opts.TeamMembers,
		channelID: opts.ReportChannelID,
		sender:    opts.Sender,
		resolver:  opts.Resolver,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// Next returns the first nudge time after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.sched.Next(t.In(s.loc))
}

// Run sends nudges on schedule until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.members) == 0 {
		s.logger.Info("nudge disabled, no team_members configured")
		return nil
	}
	for {
		now := s.now().In(s.loc)
		next := s.Next(now)
		wait := next.Sub(now)
		s.logger.Info("nudge scheduled",
			zap.Time("next", next),
			zap.Duration("in", wait.Round(time.Minute)))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		sent, err := s.SendNudges(ctx)
		if err != nil {
			s.logger.Warn("nudge round failed", zap.Int("sent", sent), zap.Error(err))
		}
	}
}

func (s *Scheduler) message() string {
	channelRef := ""
	if s.channelID != "" {
		channelRef = fmt.Sprintf(" Please post it in <#%s>.", s.channelID)
	}
	return fmt.Sprintf(
		"Hey! Friendly reminder to share today's standup (%s) with `/standup`.%s\n"+
			"Example: `/standup fixed LAA-12, will test 117 tomorrow, Sam helped me for 30 min`",
		s.now().In(s.loc).Format("Mon Jan 2"), channelRef,
	)
}

// SendNudges DMs every resolvable team member once and returns how many
// messages were delivered.
func (s *Scheduler) SendNudges(ctx context.Context) (int, error) {
	ids, unresolved, err := s.resolver.ResolveUserIDs(ctx, s.members)
	if len(unresolved) > 0 {
		s.logger.Warn("nudge unresolved team members", zap.Strings("members", unresolved))
	}
	if err != nil && len(ids) == 0 {
		return 0, fmt.Errorf("resolve team members: %w", err)
	}

	msg := s.message()
	sent := 0
	var firstErr error
	for _, userID := range ids {
		channel, _, _, err := s.sender.OpenConversationContext(ctx, &slack.OpenConversationParameters{Users: []string{userID}})
		if err != nil {
			s.logger.Warn("nudge open DM", zap.String("user", userID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if _, _, err := s.sender.PostMessageContext(ctx, channel.ID, slack.MsgOptionText(msg, false)); err != nil {
			s.logger.Warn("nudge send", zap.String("user", userID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
	}
	s.logger.Info("nudge round done", zap.Int("sent", sent), zap.Int("members", len(ids)))
	return sent, firstErr
}
