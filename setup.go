package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"sheet_notify/internal/app"
	"sheet_notify/internal/config"
	"sheet_notify/internal/ingress"
	"sheet_notify/internal/notifications"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sheet-notify",
		Short:         "Forward spreadsheet status changes and new intake records to Telegram",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.SetupEnvironment()
		},
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Listen for edit events pushed by the spreadsheet",
		RunE:  runServe,
	}
	root.RunE = runServe
	root.AddCommand(
		serve,
		&cobra.Command{
			Use:   "ping",
			Short: "Send a connection test message to the chat",
			RunE:  runPing,
		},
		&cobra.Command{
			Use:   "settings",
			Short: "Print the effective settings read from the configuration sheet",
			RunE:  runSettings,
		},
	)
	return root
}

func bootstrap(ctx context.Context, resilience config.ResilienceConfig) (*app.Services, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return nil, err
	}
	services, err := app.InitializeServices(ctx, cfg, resilience)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize services")
		return nil, err
	}
	return services, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap(ctx, config.DefaultResilienceConfig)
	if err != nil {
		return err
	}
	defer services.Close()

	log.Info().
		Str("spreadsheet_id", services.Config.SpreadsheetID).
		Str("addr", services.Config.ListenAddr).
		Msg("Starting sheet notification service")

	handler := ingress.NewHandler(services.Coordinator, services.Config.WebhookSecret)
	if err := ingress.Run(ctx, services.Config.ListenAddr, handler); err != nil {
		log.Error().Err(err).Msg("Edit listener failed")
		return err
	}

	m := services.Gateway.Metrics()
	log.Info().
		Int64("sent", m.Sent).
		Int64("failed", m.Failed).
		Int64("rate_limited", m.RateLimited).
		Int64("fallback", m.Fallback).
		Msg("Notification totals")
	return nil
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	services, err := bootstrap(ctx, config.FastResilienceConfig)
	if err != nil {
		return err
	}
	defer services.Close()

	msg := services.Formatter.TestMessage(services.Sender.ChatID(), time.Now())
	result := services.Gateway.Send(ctx, msg)
	if result.Outcome != notifications.OutcomeDelivered {
		log.Error().Err(result.Err).Str("outcome", result.Outcome.String()).Msg("Connection test failed")
		return fmt.Errorf("connection test %s", result.Outcome)
	}
	log.Info().Int64("chat_id", services.Sender.ChatID()).Msg("Connection test message sent")
	return nil
}

func runSettings(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	services, err := bootstrap(ctx, config.FastResilienceConfig)
	if err != nil {
		return err
	}
	defer services.Close()

	snapshot := services.Settings.Snapshot(ctx)
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", services.Settings.SheetName())
	for _, k := range keys {
		fmt.Fprintf(out, "%s = %v\n", k, snapshot[k])
	}
	return nil
}
