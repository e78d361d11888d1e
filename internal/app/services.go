package app

import (
	"context"
	"fmt"

	"sheet_notify/internal/classify"
	"sheet_notify/internal/config"
	"sheet_notify/internal/messages"
	"sheet_notify/internal/notifications"
	"sheet_notify/internal/processing"
	"sheet_notify/internal/settings"
	"sheet_notify/internal/sheets"
	"sheet_notify/internal/storage"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// Services holds the wired components of a running instance.
type Services struct {
	Config      Config
	Spreadsheet *sheets.Spreadsheet
	State       storage.Store
	Settings    *settings.Store
	Sender      *notifications.TelegramSender
	Gateway     *notifications.Gateway
	Formatter   *messages.Formatter
	Coordinator *processing.Coordinator
}

// InitializeServices creates the Sheets client, state store and Telegram transport
// and wires them into the coordinator.
func InitializeServices(ctx context.Context, cfg Config, resilience config.ResilienceConfig) (*Services, error) {
	log.Debug().Msg("Initializing clients")

	sheetsClient, err := sheets.NewClient(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, err
	}
	spreadsheet := sheets.NewSpreadsheet(sheetsClient, cfg.SpreadsheetID, resilience)

	state, err := storage.Open(storage.Config{Driver: cfg.StateDriver, Path: cfg.StatePath})
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	sender, err := notifications.NewTelegramSender(cfg.TelegramToken, cfg.TelegramAPIURL, cfg.TelegramChatID)
	if err != nil {
		_ = state.Close()
		return nil, err
	}

	store := settings.New(spreadsheet, cfg.ConfigSheet, state, settings.WithResilience(resilience))
	gateway := notifications.NewGateway(sender, store)
	formatter := messages.NewFormatter(spreadsheet, cfg.Location)
	journal := sheets.NewJournal(spreadsheet, cfg.JournalSheet)
	detector := classify.NewRecordDetector(spreadsheet, cfg.IntakeSheet, nil)

	coordinator := processing.NewCoordinator(
		spreadsheet.ID(),
		store,
		detector,
		formatter,
		gateway,
		journal,
	)

	log.Debug().
		Str("spreadsheet_id", spreadsheet.ID()).
		Str("config_sheet", store.SheetName()).
		Str("intake_sheet", detector.IntakeSheet()).
		Str("journal_sheet", journal.SheetName()).
		Str("state_driver", cfg.StateDriver).
		Msg("Clients initialized successfully")

	return &Services{
		Config:      cfg,
		Spreadsheet: spreadsheet,
		State:       state,
		Settings:    store,
		Sender:      sender,
		Gateway:     gateway,
		Formatter:   formatter,
		Coordinator: coordinator,
	}, nil
}

func (s *Services) Close() error {
	if s == nil || s.State == nil {
		return nil
	}
	return s.State.Close()
}
