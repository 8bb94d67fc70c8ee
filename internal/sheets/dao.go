package sheets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	sheetsv4 "google.golang.org/api/sheets/v4"

	"visitor-desk/internal/models"
)

const SheetRegistrations = "Registrations"

var header = []interface{}{
	"id", "status", "name", "cedula", "arrival_date", "departure_date",
	"visit_reason", "person_to_visit", "submitted_by", "submitted_at",
	"processed_by", "processed_at",
}

// ReplaceRegistrations overwrites the Registrations sheet with the given
// list: header row first, one row per registration.
func (c *Client) ReplaceRegistrations(ctx context.Context, regs []models.Registration) error {
	rng := SheetRegistrations + "!A:Z"
	if _, err := c.srv.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &sheetsv4.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	vr := &sheetsv4.ValueRange{Values: Rows(regs)}
	_, err := c.srv.Spreadsheets.Values.Update(c.spreadsheetID, SheetRegistrations+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}
	return nil
}

// Rows renders regs as sheet values, header included.
func Rows(regs []models.Registration) [][]interface{} {
	rows := make([][]interface{}, 0, len(regs)+1)
	rows = append(rows, header)
	for _, r := range regs {
		rows = append(rows, row(r))
	}
	return rows
}

func row(r models.Registration) []interface{} {
	processedAt := ""
	if r.ProcessedAt != nil {
		processedAt = r.ProcessedAt.Format(time.RFC3339)
	}
	return []interface{}{
		strconv.FormatInt(r.ID, 10),
		string(r.Status),
		r.Name,
		r.NationalID,
		r.ArrivalDate.Format(time.RFC3339),
		r.DepartureDate.Format(time.RFC3339),
		r.VisitReason,
		r.PersonToVisit,
		r.SubmittedBy,
		r.SubmittedAt.Format(time.RFC3339),
		r.ProcessedBy,
		processedAt,
	}
}
