// Package sheets appends health rows to the dashboard spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	fitbitTab = "Fitbit"
	bpTab     = "Blood Pressure"
	dietTab   = "Diet"

	timestampLayout = "2006-01-02 15:04:05"
)

// FitbitColumns is the column order of the Fitbit tab, after the leading
// timestamp column. It must exactly match the sheet header or appended data
// silently misaligns.
var FitbitColumns = []string{
	"steps", "distance_km", "floors", "calories_total", "calories_activity",
	"azm_fat_burn", "azm_cardio", "azm_peak", "azm_total",
	"sleep_start", "sleep_end", "sleep_duration_hrs", "sleep_efficiency",
	"sleep_deep_min", "sleep_light_min", "sleep_rem_min", "sleep_wake_min",
	"rhr", "hrv_rmssd", "spo2_avg", "spo2_min", "spo2_max",
	"breathing_rate", "skin_temp_variation", "vo2_max", "exercises",
}

// Reading is one blood pressure measurement. Pulse is empty when not
// recorded.
type Reading struct {
	Systolic  int
	Diastolic int
	Pulse     string
	Notes     string
}

// DietItem is one logged food item. Grams is empty when no weight was given.
type DietItem struct {
	Food  string
	Grams string
	Notes string
}

// Writer appends rows to the named tabs of one spreadsheet.
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
	now           func() time.Time
}

// NewWriter builds a service-account-authenticated writer for the given
// spreadsheet.
func NewWriter(ctx context.Context, serviceAccountFile, spreadsheetID string) (*Writer, error) {
	service, err := sheets.NewService(ctx,
		option.WithCredentialsFile(serviceAccountFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}

	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
		now:           time.Now,
	}, nil
}

// AppendFitbit appends one timestamped row of metrics to the Fitbit tab,
// in FitbitColumns order. Missing keys become empty cells.
func (w *Writer) AppendFitbit(ctx context.Context, metrics map[string]any) error {
	return w.appendRow(ctx, fitbitTab, fitbitRow(w.timestamp(), metrics))
}

// AppendBloodPressure appends one row per reading to the Blood Pressure
// tab. All rows share the call's timestamp; each carries its 1-based index.
// Rows are appended one at a time; a failure aborts the remainder.
func (w *Writer) AppendBloodPressure(ctx context.Context, readings []Reading) error {
	for _, row := range bpRows(w.timestamp(), readings) {
		if err := w.appendRow(ctx, bpTab, row); err != nil {
			return err
		}
	}
	return nil
}

// AppendDiet appends one row per item to the Diet tab.
func (w *Writer) AppendDiet(ctx context.Context, meal string, items []DietItem) error {
	for _, row := range dietRows(w.timestamp(), meal, items) {
		if err := w.appendRow(ctx, dietTab, row); err != nil {
			return err
		}
	}
	return nil
}

// VerifyFitbitHeader reads the first row of the Fitbit tab and reports a
// mismatch against the writer's column order.
func (w *Writer) VerifyFitbitHeader(ctx context.Context) error {
	resp, err := w.service.Spreadsheets.Values.
		Get(w.spreadsheetID, fmt.Sprintf("'%s'!1:1", fitbitTab)).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading %s header row: %w", fitbitTab, err)
	}
	if len(resp.Values) == 0 {
		return errors.New("Fitbit tab has no header row")
	}
	return checkHeader(resp.Values[0])
}

func checkHeader(header []any) error {
	want := append([]string{"timestamp"}, FitbitColumns...)
	if len(header) < len(want) {
		return fmt.Errorf("header has %d columns, want %d", len(header), len(want))
	}
	for i, name := range want {
		got, _ := header[i].(string)
		if !strings.EqualFold(strings.TrimSpace(got), name) {
			return fmt.Errorf("header column %d is %q, want %q", i+1, got, name)
		}
	}
	return nil
}

func (w *Writer) appendRow(ctx context.Context, tab string, row []any) error {
	values := &sheets.ValueRange{Values: [][]any{row}}

	_, err := w.service.Spreadsheets.Values.
		Append(w.spreadsheetID, fmt.Sprintf("'%s'", tab), values).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending to %s tab: %w", tab, err)
	}
	return nil
}

func (w *Writer) timestamp() string {
	return w.now().Format(timestampLayout)
}

func fitbitRow(ts string, metrics map[string]any) []any {
	row := make([]any, 0, len(FitbitColumns)+1)
	row = append(row, ts)
	for _, col := range FitbitColumns {
		v, ok := metrics[col]
		if !ok {
			v = ""
		}
		row = append(row, v)
	}
	return row
}

func bpRows(ts string, readings []Reading) [][]any {
	rows := make([][]any, 0, len(readings))
	for i, r := range readings {
		rows = append(rows, []any{ts, i + 1, r.Systolic, r.Diastolic, r.Pulse, r.Notes})
	}
	return rows
}

func dietRows(ts, meal string, items []DietItem) [][]any {
	name := cases.Title(language.English).String(strings.ToLower(meal))
	rows := make([][]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, []any{ts, name, item.Food, item.Grams, item.Notes})
	}
	return rows
}
