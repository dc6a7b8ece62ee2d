package main

import (
	"fmt"
	"strings"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the API key, model and GitHub token",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		s := a.store.Settings()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "server:       %s\n", viper.GetString("server"))
		fmt.Fprintf(out, "state file:   %s\n", viper.GetString("state_file"))
		fmt.Fprintf(out, "api key:      %s\n", mask(s.APIKey))
		fmt.Fprintf(out, "model:        %s\n", s.Model)
		fmt.Fprintf(out, "github token: %s\n", mask(s.GitHubToken))
		return nil
	},
}

func settingCmd(use, short string, apply func(a *app, v string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := apply(a, strings.TrimSpace(args[0])); err != nil {
				return err
			}
			return a.save(cmd.Context())
		},
	}
}

func init() {
	settingsCmd.AddCommand(
		settingsShowCmd,
		settingCmd("set-key <key>", "Store the Gemini API key", func(a *app, v string) error {
			a.store.SetAPIKey(v)
			return nil
		}),
		settingCmd("set-model <model>", "Select the model ("+strings.Join(domain.KnownModels, ", ")+")", func(a *app, v string) error {
			return a.store.SetModel(v)
		}),
		settingCmd("set-token <token>", "Store a GitHub token", func(a *app, v string) error {
			a.store.SetGitHubToken(v)
			return nil
		}),
	)
}

func mask(s string) string {
	switch {
	case s == "":
		return "(not set)"
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "…" + s[len(s)-4:]
	}
}
