package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"updatestracker/internal/api"
	"updatestracker/internal/config"
	"updatestracker/internal/integrations/llm"
	slackbot "updatestracker/internal/integrations/slack"
	"updatestracker/internal/nudge"
	"updatestracker/internal/taxonomy"
)

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, plus the Slack bot and nudges when Slack is configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http_addr)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	c, err := build(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer c.close()

	g, ctx := errgroup.WithContext(ctx)

	router := api.NewRouter(api.Options{
		Service:        c.service,
		Models:         llm.Models(cfg.LLMProvider, cfg.LLMModel),
		Health:         c.store,
		MetricsHandler: c.metrics.Handler(),
		Logger:         c.logger,
	})
	server := api.NewServer(cfg.HTTPAddr, router, c.logger)
	g.Go(func() error { return server.Run(ctx) })

	if cfg.TaxonomyPath != "" {
		watcher, err := taxonomy.NewWatcher(cfg.TaxonomyPath, c.taxonomy, c.logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			watcher.Run(ctx)
			return nil
		})
	}

	if cfg.SlackConfigured() {
		slackAPI := slack.New(cfg.SlackBotToken, slack.OptionAppLevelToken(cfg.SlackAppToken))
		bot := slackbot.NewBot(slackbot.BotOptions{
			API:            slackAPI,
			Service:        c.service,
			Location:       cfg.Location,
			CommandTimeout: cfg.LLMTimeout() + cfg.LLMTimeout()/2,
			Logger:         c.logger,
		})
		g.Go(func() error { return bot.Run(ctx) })

		scheduler, err := nudge.NewScheduler(nudge.Options{
			Schedule:        cfg.NudgeSchedule,
			Location:        cfg.Location,
			TeamMembers:     cfg.TeamMembers,
			ReportChannelID: cfg.ReportChannelID,
			Sender:          slackAPI,
			Resolver:        slackbot.NewDirectory(slackAPI, c.logger),
			Logger:          c.logger,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return scheduler.Run(ctx) })
	} else {
		c.logger.Info("slack not configured, bot and nudges disabled")
	}

	err = g.Wait()
	c.logger.Info("shutdown complete", zap.Error(err))
	return err
}
