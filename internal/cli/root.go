// Package cli defines the cobra command tree for bk.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/bukkaku/internal/config"
	"github.com/evcraddock/bukkaku/internal/db"
	"github.com/evcraddock/bukkaku/internal/flyer"
	"github.com/evcraddock/bukkaku/internal/logging"
	"github.com/evcraddock/bukkaku/internal/property"
)

var (
	flagFormat string
	flagDB     string
	flagConfig string
	flagDev    bool
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bk",
		Short: "Check whether flyer properties are still listed",
		Long: "bukkaku (物確) reads rental property flyers, searches the configured listing " +
			"platforms for each property, and tracks the ones that need a phone call.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.config/bk/bukkaku.db)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ~/.config/bk/config.yaml)")
	root.PersistentFlags().BoolVar(&flagDev, "dev", false, "human-readable debug logging")

	root.AddCommand(
		newInitCmd(),
		newExtractCmd(),
		newVerifyCmd(),
		newListCmd(),
		newShowCmd(),
		newFollowUpsCmd(),
		newCalledCmd(),
		newRemoveCmd(),
		newPlatformsCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	return root
}

// loadConfig reads .env and the config file, then sets up logging.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDev {
		cfg.Dev = true
	}
	logging.Setup(cfg.Dev, os.Stderr)
	return cfg, nil
}

// openDB opens the store at --db, the configured path or the default.
func openDB(cfg *config.Config) (*sql.DB, error) {
	path := flagDB
	if path == "" {
		path = cfg.DB
	}
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// newPropertyRepo loads config and opens the property store.
func newPropertyRepo() (*config.Config, *property.Repository, *sql.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	database, err := openDB(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, property.NewRepository(database), database, nil
}

func newPropertyService(cfg *config.Config, repo *property.Repository) *property.Service {
	return property.NewService(repo, flyer.NewExtractor(cfg.Flyer.MaxBytes))
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
