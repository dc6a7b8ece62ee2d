package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/arturoeanton/code-atlas/internal/state"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <github-url>",
	Short: "Analyze a GitHub repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		settings := a.store.Settings()
		if settings.APIKey == "" {
			return fmt.Errorf("no API key configured; run `atlas settings set-key <key>`")
		}
		out := cmd.OutOrStdout()

		a.store.ClearAnalysis()
		a.store.SetAnalyzing(true)
		req := port.AnalyzeRequest{
			URL:         args[0],
			APIKey:      settings.APIKey,
			GitHubToken: settings.GitHubToken,
			Model:       settings.Model,
		}
		result, err := a.api.AnalyzeWithProgress(ctx, req, func(p domain.AnalysisProgress) {
			a.store.SetProgress(&p)
			fmt.Fprintf(out, "[%3d%%] %s\n", p.Progress, p.Message)
		})
		if err != nil {
			a.store.SetError(err.Error())
			return err
		}

		a.store.SetAnalysis(result)
		a.store.SetFileTree(domain.BuildTree(result.Tree))
		a.store.SetActiveTab(state.TabOverview)
		if err := a.save(ctx); err != nil {
			return err
		}
		printAnalysis(out, result)
		return nil
	},
}

func printAnalysis(w io.Writer, a *domain.Analysis) {
	fmt.Fprintf(w, "\n%s", a.Repo.FullName)
	if a.Repo.Language != nil {
		fmt.Fprintf(w, " (%s)", *a.Repo.Language)
	}
	fmt.Fprintf(w, "  ★ %d  forks %d\n", a.Repo.Stars, a.Repo.Forks)
	if a.Repo.Description != nil {
		fmt.Fprintln(w, *a.Repo.Description)
	}

	fmt.Fprintf(w, "\nSummary\n%s\n", a.Summary)
	fmt.Fprintf(w, "\nArchitecture\n%s\n", a.Architecture)
	if len(a.TechStack) > 0 {
		fmt.Fprintf(w, "\nTech stack: %s\n", strings.Join(a.TechStack, ", "))
	}
	if h := a.CodeHealth; h != nil {
		fmt.Fprintf(w, "\nCode health: %s (%.0f/100)\n", h.Overall, h.Score)
		for _, i := range h.Issues {
			fmt.Fprintf(w, "  - [%s] %s: %s\n", i.Severity, i.Category, i.Message)
		}
		for _, s := range h.Suggestions {
			fmt.Fprintf(w, "  * %s\n", s)
		}
	}

	var kinds []string
	for _, k := range domain.DiagramKinds {
		if a.Diagrams.Get(k) != "" {
			kinds = append(kinds, string(k))
		}
	}
	fmt.Fprintf(w, "\nDiagrams: %s\n", strings.Join(kinds, ", "))
	if len(a.Degraded) > 0 {
		fmt.Fprintf(w, "Fallback values used for: %s\n", strings.Join(a.Degraded, ", "))
	}
	fmt.Fprintf(w, "Analysis id: %s\n", a.ID)
}
