package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ErrSheetNotFound is returned when the requested range names a sheet that does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

type Client struct {
	service *sheets.Service
}

// NewClient builds a Sheets API client. Callers pass option.WithCredentialsFile for
// production use; tests pass option.WithEndpoint and option.WithoutAuthentication.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service: service,
	}, nil
}

// ReadRange returns raw cell values. Numbers and booleans keep their native types;
// date and time cells come back as their formatted strings.
func (c *Client) ReadRange(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, range_).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		if isMissingSheet(err) {
			return nil, fmt.Errorf("failed to read %s: %w", range_, ErrSheetNotFound)
		}
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	return resp.Values, nil
}

func (c *Client) AppendRows(ctx context.Context, spreadsheetID, range_ string, rows [][]interface{}) error {
	valueRange := &sheets.ValueRange{
		Values: rows,
	}

	_, err := c.service.Spreadsheets.Values.Append(spreadsheetID, range_, valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		if isMissingSheet(err) {
			return fmt.Errorf("failed to append to %s: %w", range_, ErrSheetNotFound)
		}
		return fmt.Errorf("failed to append rows: %w", err)
	}

	return nil
}

// isMissingSheet recognises the 400 the API answers with when a range names an unknown sheet.
func isMissingSheet(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "Unable to parse range")
}

// isClientError reports 4xx responses, which retrying will not fix.
func isClientError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests
}
