package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Simplici0/pagen/internal/config"
	"github.com/Simplici0/pagen/internal/db"
	"github.com/Simplici0/pagen/internal/logging"
	"github.com/Simplici0/pagen/internal/migrations"
	"github.com/Simplici0/pagen/internal/profiles"
	"github.com/Simplici0/pagen/internal/seed"
	"github.com/Simplici0/pagen/internal/settings"
)

// app carries what every subcommand shares.
type app struct {
	env      config.Config
	logLevel string
	dbPath   string
	logger   *slog.Logger
}

func newRootCmd(env config.Config) *cobra.Command {
	a := &app{env: env, logger: logging.Discard()}

	root := &cobra.Command{
		Use:          "pagen",
		Short:        "Generate pressure advance calibration G-code",
		Long:         `pagen prints a small test object whose layers step through a range of pressure advance values, so the best value can be read off the print.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(cmd.ErrOrStderr(), a.logLevel)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", env.LogLevel, "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.dbPath, "db", env.DBPath, "path of the profile database")

	root.AddCommand(
		a.newGenerateCmd(),
		a.newDefaultsCmd(),
		a.newProfileCmd(),
		a.newPACmd(),
		a.newServeCmd(),
	)
	return root
}

// openStore opens the profile database, migrating and seeding it as needed.
func (a *app) openStore(ctx context.Context) (*profiles.Store, func() error, error) {
	database, err := db.Open(ctx, a.dbPath)
	if err != nil {
		return nil, nil, err
	}

	applied, err := migrations.Up(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	stats, err := seed.Run(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("seed database: %w", err)
	}
	a.logger.Debug("profile database ready",
		"path", a.dbPath,
		"migrations", applied,
		"inserts", stats.Inserts,
		"updates", stats.Updates,
	)

	return profiles.New(database), database.Close, nil
}

// source selects where a settings document comes from.
type source struct {
	settingsPath string
	profile      string
	overrides    []string
	strict       bool
}

func (s *source) register(cmd *cobra.Command, defaultPath string) {
	cmd.Flags().StringVarP(&s.settingsPath, "settings", "s", defaultPath, "settings file (.json, .yaml or .yml)")
	cmd.Flags().StringVarP(&s.profile, "profile", "p", "", "named profile from the database")
	cmd.Flags().StringArrayVar(&s.overrides, "set", nil, "override a setting, e.g. --set pressure_advance_settings.finish=0.08")
	cmd.Flags().BoolVar(&s.strict, "strict", false, "do not fill missing settings with defaults")
	cmd.MarkFlagsMutuallyExclusive("settings", "profile")
}

// load reads the selected document and applies overrides. Without --strict,
// missing entries are filled from the built-in defaults.
func (a *app) load(ctx context.Context, s source) (*settings.Document, error) {
	var (
		doc *settings.Document
		err error
	)
	switch {
	case s.profile != "":
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return nil, err
		}
		defer closeStore()
		if doc, err = store.Get(ctx, s.profile); err != nil {
			return nil, err
		}
	case s.settingsPath != "":
		if doc, err = settings.LoadFile(s.settingsPath); err != nil {
			return nil, err
		}
	default:
		doc = settings.Default()
	}

	if err := applyOverrides(doc, s.overrides); err != nil {
		return nil, err
	}
	if !s.strict {
		doc = settings.WithDefaults(doc)
	}
	return doc, nil
}

func applyOverrides(doc *settings.Document, overrides []string) error {
	for _, o := range overrides {
		path, value, ok := strings.Cut(o, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q: expected group.key=value", o)
		}
		if err := doc.SetString(strings.TrimSpace(path), value); err != nil {
			return err
		}
	}
	return nil
}

// writeOutput writes data to stdout for "-" and otherwise replaces path
// atomically, so a failed run never leaves a truncated file behind.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output file: %w", err)
	}
	return nil
}
