package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/arturoeanton/code-atlas/internal/adapter/store"
	"github.com/arturoeanton/code-atlas/internal/client"
	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/arturoeanton/code-atlas/internal/state"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Terminal client for the CodeAtlas repository analyzer",
	Long: `atlas talks to a running CodeAtlas server.

  atlas settings set-key <key>   Store your Gemini API key
  atlas analyze <github-url>     Analyze a repository
  atlas diagram <kind>           Print a Mermaid diagram of the last analysis
  atlas tree                     Show the file tree of the last analysis
  atlas chat "<question>"        Ask about the analyzed repository`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("server", "http://localhost:3001", "CodeAtlas server URL")
	rootCmd.PersistentFlags().String("state-file", defaultStateFile(), "where settings and the session are kept")
	rootCmd.PersistentFlags().String("state-dsn", "", "keep settings and the session in Postgres instead of the state file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("state_file", rootCmd.PersistentFlags().Lookup("state-file"))
	_ = viper.BindPFlag("state_dsn", rootCmd.PersistentFlags().Lookup("state-dsn"))

	rootCmd.Version = Version
	rootCmd.AddCommand(analyzeCmd, chatCmd, settingsCmd, diagramCmd, treeCmd)
}

func initConfig() {
	viper.SetEnvPrefix("CODEATLAS")
	viper.AutomaticEnv()
	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
}

func defaultStateFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codeatlas.json"
	}
	return filepath.Join(home, ".codeatlas", "state.json")
}

// app bundles what every command needs.
type app struct {
	store *state.Store
	files port.StatePersister
	api   *client.Client
}

func loadApp(ctx context.Context) (*app, error) {
	files, err := statePersister()
	if err != nil {
		return nil, err
	}
	st := state.New()
	if err := st.Load(ctx, files); err != nil {
		return nil, err
	}
	if err := loadSession(ctx, files, st); err != nil {
		return nil, err
	}
	return &app{
		store: st,
		files: files,
		api:   client.New(viper.GetString("server"), nil),
	}, nil
}

func statePersister() (port.StatePersister, error) {
	if dsn := viper.GetString("state_dsn"); dsn != "" {
		pg, err := store.NewPostgresStore(dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	return store.NewFileStore(viper.GetString("state_file")), nil
}

func (a *app) save(ctx context.Context) error {
	if err := a.store.Save(ctx, a.files); err != nil {
		return err
	}
	return saveSession(ctx, a.files, a.store)
}
