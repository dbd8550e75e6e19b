package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/bukkaku/internal/api"
	"github.com/evcraddock/bukkaku/internal/verify"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API",
		Long:  "Start an HTTP server exposing extraction, verification and the follow-up list.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default: server.port from config)")

	return cmd
}

func runServe(cmd *cobra.Command, port int) error {
	cfg, repo, database, err := newPropertyRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)

	adapters, err := cfg.Adapters()
	if err != nil {
		return err
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	srv := api.NewServer(fmt.Sprintf(":%d", port), api.Deps{
		Repo:           repo,
		Service:        newPropertyService(cfg, repo),
		Orchestrator:   verify.New(adapters, cfg.VerifyOptions()),
		MaxUploadBytes: int64(cfg.Flyer.MaxBytes),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-cmd.Context().Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}
