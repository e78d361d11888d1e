package sheets

import (
	"context"
	"errors"

	"sheet_notify/internal/config"
	"sheet_notify/internal/retry"

	"github.com/rs/zerolog/log"
)

// RangeReader reads A1 ranges from one spreadsheet.
type RangeReader interface {
	ReadRange(ctx context.Context, a1 string) ([][]interface{}, error)
}

// RowAppender appends rows below the data of an A1 range.
type RowAppender interface {
	AppendRows(ctx context.Context, a1 string, rows [][]interface{}) error
}

// Spreadsheet binds a Client to a single spreadsheet ID and wraps calls in retries.
type Spreadsheet struct {
	client     *Client
	id         string
	resilience config.ResilienceConfig
}

func NewSpreadsheet(client *Client, spreadsheetID string, resilience config.ResilienceConfig) *Spreadsheet {
	return &Spreadsheet{
		client:     client,
		id:         spreadsheetID,
		resilience: resilience,
	}
}

func (s *Spreadsheet) ID() string {
	return s.id
}

func (s *Spreadsheet) ReadRange(ctx context.Context, a1 string) ([][]interface{}, error) {
	log.Debug().Str("range", a1).Msg("Reading range")
	values, err := retry.WithRetry(ctx, s.resilience.SheetRead, func(ctx context.Context) ([][]interface{}, error) {
		values, err := s.client.ReadRange(ctx, s.id, a1)
		if err != nil && (errors.Is(err, ErrSheetNotFound) || isClientError(err)) {
			return nil, retry.Permanent(err)
		}
		return values, err
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("range", a1).Int("rows", len(values)).Msg("Read range")
	return values, nil
}

func (s *Spreadsheet) AppendRows(ctx context.Context, a1 string, rows [][]interface{}) error {
	_, err := retry.WithRetry(ctx, s.resilience.SheetAppend, func(ctx context.Context) (struct{}, error) {
		err := s.client.AppendRows(ctx, s.id, a1, rows)
		if err != nil && (errors.Is(err, ErrSheetNotFound) || isClientError(err)) {
			return struct{}{}, retry.Permanent(err)
		}
		return struct{}{}, err
	})
	return err
}
