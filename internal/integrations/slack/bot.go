// Package slackbot exposes report preview and commit as Slack slash
// commands over Socket Mode.
package slackbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"updatestracker/internal/domain"
	"updatestracker/internal/report"
)

const (
	CommandStandup        = "/standup"
	CommandStandupPreview = "/standup-preview"
)

const usageText = "Usage: `/standup <what you did and what you're working on>` saves today's update.\n" +
	"`/standup-preview <text>` shows how it would be formatted without saving.\n" +
	"Example: `/standup fixed LAA-12, will test 117 tomorrow, Sam helped me for 30 min`"

type ReportService interface {
	Preview(ctx context.Context, req report.PreviewRequest) (domain.ExtractionResult, error)
	Commit(ctx context.Context, req report.CommitRequest) (domain.Report, error)
}

// Poster sends ephemeral replies.
type Poster interface {
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)
}

type Bot struct {
	api     *slack.Client
	poster  Poster
	svc     ReportService
	loc     *time.Location
	timeout time.Duration
	logger  *zap.Logger
}

type BotOptions struct {
	API      *slack.Client
	Service  ReportService
	Location *time.Location
	// CommandTimeout bounds one command, generation included.
	CommandTimeout time.Duration
	Logger         *zap.Logger
}

func NewBot(opts BotOptions) *Bot {
	b := &Bot{
		api:     opts.API,
		poster:  opts.API,
		svc:     opts.Service,
		loc:     opts.Location,
		timeout: opts.CommandTimeout,
		logger:  opts.Logger,
	}
	if b.loc == nil {
		b.loc = time.Local
	}
	if b.timeout <= 0 {
		b.timeout = 2 * time.Minute
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	return b
}

// Run connects over Socket Mode and serves commands until ctx ends.
func (b *Bot) Run(ctx context.Context) error {
	client := socketmode.New(b.api)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-client.Events:
				if !ok {
					return
				}
				b.dispatch(ctx, client, evt)
			}
		}
	}()

	b.logger.Info("slack bot starting")
	err := client.RunContext(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (b *Bot) dispatch(ctx context.Context, client *socketmode.Client, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		b.logger.Info("slack connecting")
	case socketmode.EventTypeConnected:
		b.logger.Info("slack connected")
	case socketmode.EventTypeConnectionError:
		b.logger.Warn("slack connection error")
	case socketmode.EventTypeSlashCommand:
		if evt.Request != nil {
			client.Ack(*evt.Request)
		}
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		b.logger.Info("slack slash command",
			zap.String("command", cmd.Command),
			zap.String("user", cmd.UserID),
			zap.String("channel", cmd.ChannelID))
		go b.handleSlashCommand(ctx, cmd)
	}
}

func (b *Bot) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	reply := b.reply(ctx, cmd)
	if _, err := b.poster.PostEphemeralContext(ctx, cmd.ChannelID, cmd.UserID, slack.MsgOptionText(reply, false)); err != nil {
		b.logger.Warn("slack post ephemeral", zap.String("user", cmd.UserID), zap.Error(err))
	}
}

// reply runs cmd and returns the text to show the user.
func (b *Bot) reply(ctx context.Context, cmd slack.SlashCommand) string {
	text := strings.TrimSpace(cmd.Text)
	if text == "" || strings.EqualFold(text, "help") {
		return usageText
	}
	input := domain.RawInput{Accomplishments: text}

	switch cmd.Command {
	case CommandStandupPreview:
		res, err := b.svc.Preview(ctx, report.PreviewRequest{RawInputs: input})
		if err != nil {
			return b.errorReply(cmd, err)
		}
		return "*Preview (not saved)*\n\n" + formatSections(res.Sections) + "\n" + methodNote(res.Method, res.Model, res.FallbackReason)
	case CommandStandup:
		now := time.Now().In(b.loc)
		r, err := b.svc.Commit(ctx, report.CommitRequest{
			RawInputs: input,
			Title:     fmt.Sprintf("%s (%s)", domain.DefaultReportTitle(now), cmd.UserName),
			Date:      now.Format("2006-01-02"),
		})
		if err != nil {
			return b.errorReply(cmd, err)
		}
		return "*Saved your update*\n\n" + formatSections(r.Sections) + "\n" + methodNote(r.Method, r.Model, r.FallbackReason)
	default:
		return fmt.Sprintf("Unknown command %s.\n%s", cmd.Command, usageText)
	}
}

func (b *Bot) errorReply(cmd slack.SlashCommand, err error) string {
	if errors.Is(err, report.ErrInvalidRequest) {
		return "I couldn't read that update: " + err.Error() + "\n" + usageText
	}
	b.logger.Error("slack command failed", zap.String("command", cmd.Command), zap.String("user", cmd.UserID), zap.Error(err))
	return "Something went wrong saving your update. Please try again."
}
