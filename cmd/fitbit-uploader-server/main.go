package main

import (
	"context"
	"log"
	"time"

	"github.com/erika-dike/fitbit-uploader/internal/config"
	"github.com/erika-dike/fitbit-uploader/internal/dashboard"
	"github.com/erika-dike/fitbit-uploader/internal/fitbit"
	"github.com/erika-dike/fitbit-uploader/internal/server"
	"github.com/erika-dike/fitbit-uploader/internal/sheets"
)

// pipelineFunc adapts a closure to server.Pipeline.
type pipelineFunc func(ctx context.Context, day time.Time) (fitbit.Metrics, error)

func (f pipelineFunc) Run(ctx context.Context, day time.Time) (fitbit.Metrics, error) {
	return f(ctx, day)
}

func main() {
	log.SetFlags(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	ctx := context.Background()
	writer, err := sheets.NewWriter(ctx, cfg.ServiceAccountFile, cfg.SpreadsheetID)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	// The session is loaded per run so a token refreshed by the CLI between
	// requests is picked up from disk.
	pipeline := pipelineFunc(func(ctx context.Context, day time.Time) (fitbit.Metrics, error) {
		session, err := fitbit.LoadSession(cfg)
		if err != nil {
			return nil, err
		}
		return dashboard.New(fitbit.NewClient(session), writer).Run(ctx, day)
	})

	srv := server.NewServer(cfg.ServerPort, cfg.APIKey, pipeline)
	log.Printf("Listening on %s - GET /fetch?key=...", srv.Addr)
	log.Fatal(srv.ListenAndServe())
}
