package domain

import "time"

// Analysis is the complete result of one analysis request.
type Analysis struct {
	ID           string          `json:"id"`
	Repo         Repository      `json:"repo"`
	Summary      string          `json:"summary"`
	Architecture string          `json:"architecture"`
	TechStack    []string        `json:"techStack"`
	Diagrams     Diagrams        `json:"diagrams"`
	FileInsights []FileInsight   `json:"fileInsights"`
	Modules      []ModuleInsight `json:"modules"`
	CodeHealth   *CodeHealth     `json:"codeHealth,omitempty"`
	Tree         []FileInfo      `json:"tree,omitempty"`
	Degraded     []string        `json:"degraded,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Diagrams holds Mermaid sources keyed by diagram kind. Absent kinds are nil.
type Diagrams struct {
	Architecture    *string `json:"architecture,omitempty"`
	Hierarchy       *string `json:"hierarchy,omitempty"`
	DataFlow        *string `json:"dataFlow,omitempty"`
	ClassDiagram    *string `json:"classDiagram,omitempty"`
	DependencyGraph *string `json:"dependencyGraph,omitempty"`
	Mindmap         *string `json:"mindmap,omitempty"`
}

// DiagramKind is the type name passed to the diagram prompt.
type DiagramKind string

const (
	DiagramArchitecture DiagramKind = "architecture"
	DiagramHierarchy    DiagramKind = "hierarchy"
	DiagramDataFlow     DiagramKind = "dataFlow"
	DiagramClass        DiagramKind = "class"
	DiagramDependency   DiagramKind = "dependency"
	DiagramMindmap      DiagramKind = "mindmap"
)

// DiagramKinds lists the kinds generated per analysis, in generation order.
var DiagramKinds = []DiagramKind{
	DiagramArchitecture,
	DiagramHierarchy,
	DiagramDataFlow,
	DiagramClass,
	DiagramDependency,
	DiagramMindmap,
}

// Set stores src under the field matching kind.
func (d *Diagrams) Set(kind DiagramKind, src string) {
	switch kind {
	case DiagramArchitecture:
		d.Architecture = &src
	case DiagramHierarchy:
		d.Hierarchy = &src
	case DiagramDataFlow:
		d.DataFlow = &src
	case DiagramClass:
		d.ClassDiagram = &src
	case DiagramDependency:
		d.DependencyGraph = &src
	case DiagramMindmap:
		d.Mindmap = &src
	}
}

// Get returns the source for kind, or "" when absent.
func (d Diagrams) Get(kind DiagramKind) string {
	var p *string
	switch kind {
	case DiagramArchitecture:
		p = d.Architecture
	case DiagramHierarchy:
		p = d.Hierarchy
	case DiagramDataFlow:
		p = d.DataFlow
	case DiagramClass:
		p = d.ClassDiagram
	case DiagramDependency:
		p = d.DependencyGraph
	case DiagramMindmap:
		p = d.Mindmap
	}
	if p == nil {
		return ""
	}
	return *p
}

// FileInsight explains a single source file.
type FileInsight struct {
	Path        string `json:"path"`
	Summary     string `json:"summary"`
	Explanation string `json:"explanation"`
	Language    string `json:"language"`
	Lines       int    `json:"lines"`
}

// ModuleInsight describes a directory-level module.
type ModuleInsight struct {
	Path    string   `json:"path"`
	Summary string   `json:"summary"`
	Files   []string `json:"files"`
	Purpose string   `json:"purpose"`
}

// SummaryInsight is the structured output of the summary prompt.
type SummaryInsight struct {
	Summary      string   `json:"summary"`
	Purpose      string   `json:"purpose"`
	Architecture string   `json:"architecture"`
	TechStack    []string `json:"techStack"`
}

// AnalysisStage names a step of the analysis pipeline reported as progress.
type AnalysisStage string

const (
	StageCloning    AnalysisStage = "cloning"
	StageAnalyzing  AnalysisStage = "analyzing"
	StageGenerating AnalysisStage = "generating"
	StageDiagrams   AnalysisStage = "diagrams"
	StageComplete   AnalysisStage = "complete"
	StageError      AnalysisStage = "error"
)

// AnalysisProgress is a progress report for a running analysis.
type AnalysisProgress struct {
	Stage    AnalysisStage `json:"stage"`
	Message  string        `json:"message"`
	Progress int           `json:"progress"`
}

var stageProgress = map[AnalysisStage]AnalysisProgress{
	StageCloning:    {Stage: StageCloning, Message: "Cloning repository...", Progress: 10},
	StageAnalyzing:  {Stage: StageAnalyzing, Message: "Analyzing code structure...", Progress: 30},
	StageGenerating: {Stage: StageGenerating, Message: "Generating insights...", Progress: 60},
	StageDiagrams:   {Stage: StageDiagrams, Message: "Creating diagrams...", Progress: 85},
	StageComplete:   {Stage: StageComplete, Message: "Analysis complete!", Progress: 100},
}

// ProgressFor returns the canonical progress report for a stage.
func ProgressFor(stage AnalysisStage) AnalysisProgress {
	if p, ok := stageProgress[stage]; ok {
		return p
	}
	return AnalysisProgress{Stage: stage, Message: string(stage)}
}
