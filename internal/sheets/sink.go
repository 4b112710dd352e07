// Package sheets mirrors research log rows into a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/Rrens/rag-tutor/internal/config"
	"github.com/Rrens/rag-tutor/internal/domain"
)

// rowAppender is the slice of the Sheets API the sink needs
type rowAppender interface {
	AppendRow(ctx context.Context, row []interface{}) error
}

// Sink implements domain.InteractionSink
type Sink struct {
	appender rowAppender
}

// NewSink authenticates with a service account credentials file
func NewSink(ctx context.Context, cfg config.SheetsConfig) (*Sink, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}

	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Sink{appender: &valuesAppender{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		rng:           cfg.Range,
	}}, nil
}

func (s *Sink) Name() string {
	return "sheets"
}

// Append writes one row: timestamp, user, type, content, media url, analysis,
// retrieved context, reply, outcome
func (s *Sink) Append(ctx context.Context, rec domain.InteractionRecord) error {
	return s.appender.AppendRow(ctx, Row(rec))
}

// Row flattens a record into spreadsheet cells
func Row(rec domain.InteractionRecord) []interface{} {
	return []interface{}{
		rec.CreatedAt.UTC().Format(time.RFC3339),
		domain.StripNUL(rec.UserID),
		string(rec.MessageType),
		domain.StripNUL(rec.ContentDescriptor),
		domain.StripNUL(rec.MediaURL),
		domain.StripNUL(rec.Analysis),
		domain.StripNUL(rec.RetrievedContext),
		domain.StripNUL(rec.FinalReply),
		rec.Succeeded,
	}
}

type valuesAppender struct {
	svc           *gsheets.Service
	spreadsheetID string
	rng           string
}

func (a *valuesAppender) AppendRow(ctx context.Context, row []interface{}) error {
	_, err := a.svc.Spreadsheets.Values.
		Append(a.spreadsheetID, a.rng, &gsheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append sheet row: %w", err)
	}
	return nil
}
