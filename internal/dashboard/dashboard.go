// Package dashboard ties the Fitbit client to the sheet writer and parses
// manually logged health readings.
package dashboard

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/erika-dike/fitbit-uploader/internal/fitbit"
	"github.com/erika-dike/fitbit-uploader/internal/sheets"
)

// MetricsFetcher pulls one day of metrics. Satisfied by *fitbit.Client.
type MetricsFetcher interface {
	FetchAll(ctx context.Context, day time.Time) fitbit.Metrics
}

// SheetWriter appends Fitbit rows. Satisfied by *sheets.Writer.
type SheetWriter interface {
	AppendFitbit(ctx context.Context, metrics map[string]any) error
	VerifyFitbitHeader(ctx context.Context) error
}

type Dashboard struct {
	fitbit MetricsFetcher
	sheets SheetWriter
}

func New(fetcher MetricsFetcher, writer SheetWriter) *Dashboard {
	return &Dashboard{fitbit: fetcher, sheets: writer}
}

// Run fetches all metrics for the given date and appends them to the
// Fitbit tab, returning the row that was written. A header mismatch is
// reported as a warning rather than blocking the daily append.
func (d *Dashboard) Run(ctx context.Context, day time.Time) (fitbit.Metrics, error) {
	metrics := d.fitbit.FetchAll(ctx, day)

	if err := d.sheets.VerifyFitbitHeader(ctx); err != nil {
		log.Printf("Warning: sheet header check failed: %v", err)
	}

	if err := d.sheets.AppendFitbit(ctx, metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

// ParseReading parses a CLI blood pressure argument of the form
// "systolic/diastolic" or "systolic/diastolic/pulse".
func ParseReading(raw string) (sheets.Reading, error) {
	parts := strings.Split(raw, "/")
	if len(parts) < 2 {
		return sheets.Reading{}, fmt.Errorf("invalid BP format %q: use systolic/diastolic or systolic/diastolic/pulse", raw)
	}

	systolic, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return sheets.Reading{}, fmt.Errorf("invalid systolic value in %q", raw)
	}
	diastolic, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return sheets.Reading{}, fmt.Errorf("invalid diastolic value in %q", raw)
	}

	pulse := ""
	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		p := strings.TrimSpace(parts[2])
		if _, err := strconv.Atoi(p); err != nil {
			return sheets.Reading{}, fmt.Errorf("invalid pulse value in %q", raw)
		}
		pulse = p
	}

	return sheets.Reading{Systolic: systolic, Diastolic: diastolic, Pulse: pulse}, nil
}

// ParseDietItems pairs CLI arguments into food items with optional integer
// weights: a value that parses as a number is the weight of the item before
// it, anything else starts a new item.
func ParseDietItems(args []string) ([]sheets.DietItem, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("provide at least one food item and weight, e.g.: diet lunch \"Rice\" 300")
	}

	var items []sheets.DietItem
	i := 0
	for i < len(args) {
		item := sheets.DietItem{Food: args[i]}
		if i+1 < len(args) {
			if _, err := strconv.Atoi(args[i+1]); err == nil {
				item.Grams = args[i+1]
				i += 2
			} else {
				i++
			}
		} else {
			i++
		}
		items = append(items, item)
	}
	return items, nil
}
