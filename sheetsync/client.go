package sheetsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// sheetClient wraps the Sheets API for the operation's data-entry
// spreadsheet. Collections are keyed in by staff through a sheet form;
// this backend only ever reads it.
type sheetClient struct {
	svc           *sheets.Service
	spreadsheetId string
	readRange     string
}

func newSheetClient(ctx context.Context) (*sheetClient, error) {
	spreadsheetId := strings.TrimSpace(os.Getenv("SHEET_ID"))
	if spreadsheetId == "" {
		return nil, errors.New("SHEET_ID is empty")
	}
	readRange := strings.TrimSpace(os.Getenv("SHEET_RANGE"))
	if readRange == "" {
		readRange = "Data!A2:E"
	}

	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	if credsFile := strings.TrimSpace(os.Getenv("SHEET_CREDENTIALS_FILE")); credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credsFile))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &sheetClient{
		svc:           svc,
		spreadsheetId: spreadsheetId,
		readRange:     readRange,
	}, nil
}

func (c *sheetClient) fetchRows(ctx context.Context) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetId, c.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s range %s: %w", c.spreadsheetId, c.readRange, err)
	}
	return resp.Values, nil
}
