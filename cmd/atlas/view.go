package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/state"
	"github.com/spf13/cobra"
)

var diagramCmd = &cobra.Command{
	Use:   "diagram <kind>",
	Short: "Print a Mermaid diagram of the last analysis",
	Long:  "kind is one of: " + diagramKindList(),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		current := a.store.Snapshot().Analysis.CurrentAnalysis
		if current == nil {
			return fmt.Errorf("no analysis yet; run `atlas analyze <url>`")
		}
		src := current.Diagrams.Get(domain.DiagramKind(args[0]))
		if src == "" {
			return fmt.Errorf("no %q diagram (kinds: %s)", args[0], diagramKindList())
		}
		a.store.SetActiveTab(state.TabAtlas)
		a.store.SetCurrentDiagram(src)
		a.store.AddToDiagramHistory(src)
		fmt.Fprintln(cmd.OutOrStdout(), src)
		return a.save(cmd.Context())
	},
}

var treeExpandAll, treeCollapseAll bool

var treeCmd = &cobra.Command{
	Use:   "tree [folder]",
	Short: "Show the file tree of the last analysis; a folder argument toggles it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		switch {
		case treeExpandAll:
			a.store.ExpandAll()
		case treeCollapseAll:
			a.store.CollapseAll()
		}
		if len(args) == 1 {
			a.store.ToggleFolder(strings.Trim(args[0], "/"))
		}
		snap := a.store.Snapshot()
		if len(snap.FileTree) == 0 {
			return fmt.Errorf("no file tree yet; run `atlas analyze <url>`")
		}
		printTree(cmd.OutOrStdout(), a.store, snap.FileTree, 0)
		return a.save(cmd.Context())
	},
}

func init() {
	treeCmd.Flags().BoolVar(&treeExpandAll, "expand-all", false, "expand every folder")
	treeCmd.Flags().BoolVar(&treeCollapseAll, "collapse-all", false, "collapse every folder")
}

func printTree(w io.Writer, st *state.Store, nodes []domain.FileNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		if n.Type != domain.FileTypeDirectory {
			fmt.Fprintf(w, "%s  %s\n", indent, n.Name)
			continue
		}
		if st.IsExpanded(n.Path) {
			fmt.Fprintf(w, "%s▾ %s/\n", indent, n.Name)
			printTree(w, st, n.Children, depth+1)
		} else {
			fmt.Fprintf(w, "%s▸ %s/\n", indent, n.Name)
		}
	}
}

func diagramKindList() string {
	kinds := make([]string, 0, len(domain.DiagramKinds))
	for _, k := range domain.DiagramKinds {
		kinds = append(kinds, string(k))
	}
	return strings.Join(kinds, ", ")
}
