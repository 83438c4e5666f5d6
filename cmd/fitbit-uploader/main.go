package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/erika-dike/fitbit-uploader/internal/config"
	"github.com/erika-dike/fitbit-uploader/internal/dashboard"
	"github.com/erika-dike/fitbit-uploader/internal/fitbit"
	"github.com/erika-dike/fitbit-uploader/internal/sheets"
)

const dateLayout = "2006-01-02"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s <command> [arguments]

Pull Fitbit metrics and log health data to Google Sheets.

Commands:
  auth                            Authorize with Fitbit (one-time browser flow)
  fitbit [--date YYYY-MM-DD]      Pull Fitbit data and append to the sheet
  bp <reading>...                 Log blood pressure readings, each as
                                  systolic/diastolic or systolic/diastolic/pulse
  diet <meal> <item> [weight]...  Log diet items with optional weights in grams

Examples:
  %[1]s fitbit --date 2025-08-01
  %[1]s bp 120/80/65 118/78
  %[1]s diet lunch "Vegetable mix" 200 "Boiled yam" 300
`, os.Args[0])
}

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	command := os.Args[1]
	switch command {
	case "help", "-h", "--help":
		usage()
		return
	}

	// All real commands need configuration; only help works without it.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	ctx := context.Background()
	args := os.Args[2:]

	switch command {
	case "auth":
		runAuth(ctx, cfg)
	case "fitbit":
		runFitbit(ctx, cfg, args)
	case "bp":
		runBloodPressure(ctx, cfg, args)
	case "diet":
		runDiet(ctx, cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", command)
		usage()
		os.Exit(2)
	}
}

func runAuth(ctx context.Context, cfg *config.Config) {
	if err := fitbit.Authorize(ctx, cfg); err != nil {
		log.Fatalf("Authorization failed: %v", err)
	}
}

func runFitbit(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("fitbit", flag.ExitOnError)
	dateStr := fs.String("date", "", "Date to fetch (YYYY-MM-DD). Defaults to today.")
	fs.Parse(args)

	day := time.Now()
	if *dateStr != "" {
		parsed, err := time.Parse(dateLayout, *dateStr)
		if err != nil {
			log.Fatalf("Error: bad date %q, use YYYY-MM-DD", *dateStr)
		}
		day = parsed
	}

	session, err := fitbit.LoadSession(cfg)
	if errors.Is(err, fitbit.ErrNoToken) {
		log.Fatalf("No tokens found. Run '%s auth' first.", os.Args[0])
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	writer := newWriter(ctx, cfg)
	board := dashboard.New(fitbit.NewClient(session), writer)

	fmt.Printf("Fetching Fitbit data for %s...\n", day.Format(dateLayout))
	metrics, err := board.Run(ctx, day)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	fmt.Printf("Fitbit data appended (%d fields)\n", len(metrics))
}

func runBloodPressure(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) == 0 {
		log.Fatalf("Error: provide at least one reading, e.g.: bp 120/80/65")
	}

	// Parse everything up front so malformed input never causes a partial
	// write.
	readings := make([]sheets.Reading, 0, len(args))
	for _, raw := range args {
		reading, err := dashboard.ParseReading(raw)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		readings = append(readings, reading)
	}

	writer := newWriter(ctx, cfg)
	if err := writer.AppendBloodPressure(ctx, readings); err != nil {
		log.Fatalf("Error: %v", err)
	}
	fmt.Printf("Blood pressure: %d reading(s) appended\n", len(readings))
}

func runDiet(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) < 1 {
		log.Fatalf("Error: provide a meal name and at least one food item")
	}
	meal := args[0]

	items, err := dashboard.ParseDietItems(args[1:])
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	writer := newWriter(ctx, cfg)
	if err := writer.AppendDiet(ctx, meal, items); err != nil {
		log.Fatalf("Error: %v", err)
	}
	fmt.Printf("Diet: %d item(s) appended for %s\n", len(items), meal)
}

func newWriter(ctx context.Context, cfg *config.Config) *sheets.Writer {
	writer, err := sheets.NewWriter(ctx, cfg.ServiceAccountFile, cfg.SpreadsheetID)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	return writer
}
