// Package state holds the client-side application state: the current
// analysis, the chat transcript, user settings and view selections.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/port"
)

// StorageKey is the key the persisted subset is saved under.
const StorageKey = "code-atlas-storage"

// MaxDiagramHistory caps the diagram history.
const MaxDiagramHistory = 20

// Tabs of the dashboard.
const (
	TabOverview = "overview"
	TabAtlas    = "atlas"
	TabModules  = "modules"
	TabChat     = "chat"
	TabExport   = "export"
)

var (
	// ErrNoAssistantMessage is returned when a streamed increment arrives but
	// the last message is not an assistant message.
	ErrNoAssistantMessage = errors.New("last message is not from the assistant")
	// ErrUnknownModel is returned by SetModel for models outside domain.KnownModels.
	ErrUnknownModel = errors.New("unknown model")
)

// AnalysisState tracks the analysis lifecycle.
type AnalysisState struct {
	IsAnalyzing     bool                     `json:"isAnalyzing"`
	Progress        *domain.AnalysisProgress `json:"progress"`
	CurrentAnalysis *domain.Analysis         `json:"currentAnalysis"`
	Error           string                   `json:"error,omitempty"`
}

// ChatState is the transcript and whether an answer is streaming.
type ChatState struct {
	Messages    []domain.ChatMessage `json:"messages"`
	IsStreaming bool                 `json:"isStreaming"`
}

// Snapshot is a copy of the whole state.
type Snapshot struct {
	Analysis         AnalysisState     `json:"analysis"`
	Chat             ChatState         `json:"chat"`
	Settings         domain.Settings   `json:"settings"`
	ActiveTab        string            `json:"activeTab"`
	SidebarCollapsed bool              `json:"sidebarCollapsed"`
	SelectedFile     string            `json:"selectedFile,omitempty"`
	FileTree         []domain.FileNode `json:"fileTree"`
	ExpandedFolders  []string          `json:"expandedFolders"`
	ChatPanelOpen    bool              `json:"chatPanelOpen"`
	CurrentDiagram   string            `json:"currentDiagram,omitempty"`
	DiagramHistory   []string          `json:"diagramHistory"`
}

// Persisted is the subset of state kept across sessions. Absent fields keep
// the current value on Restore, except ExpandedFolders which is replaced.
type Persisted struct {
	Settings         *domain.Settings `json:"settings,omitempty"`
	SidebarCollapsed *bool            `json:"sidebarCollapsed,omitempty"`
	ExpandedFolders  []string         `json:"expandedFolders"`
}

// Store is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	analysis AnalysisState
	chat     ChatState
	settings domain.Settings

	activeTab        string
	sidebarCollapsed bool
	selectedFile     string
	fileTree         []domain.FileNode
	expandedFolders  map[string]struct{}
	chatPanelOpen    bool
	currentDiagram   string
	diagramHistory   []string
}

// New returns a store with default settings.
func New() *Store {
	return &Store{
		settings:        domain.Settings{Model: domain.DefaultModel},
		activeTab:       TabOverview,
		expandedFolders: make(map[string]struct{}),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Analysis: s.analysis,
		Chat: ChatState{
			Messages:    slices.Clone(s.chat.Messages),
			IsStreaming: s.chat.IsStreaming,
		},
		Settings:         s.settings,
		ActiveTab:        s.activeTab,
		SidebarCollapsed: s.sidebarCollapsed,
		SelectedFile:     s.selectedFile,
		FileTree:         slices.Clone(s.fileTree),
		ExpandedFolders:  s.expandedList(),
		ChatPanelOpen:    s.chatPanelOpen,
		CurrentDiagram:   s.currentDiagram,
		DiagramHistory:   slices.Clone(s.diagramHistory),
	}
}

// Settings returns the current settings.
func (s *Store) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Messages returns a copy of the transcript.
func (s *Store) Messages() []domain.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.chat.Messages)
}

// --- analysis ---

func (s *Store) SetAnalyzing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysis.IsAnalyzing = v
}

func (s *Store) SetProgress(p *domain.AnalysisProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysis.Progress = p
}

// SetAnalysis stores the result and ends the analyzing state.
func (s *Store) SetAnalysis(a *domain.Analysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysis.CurrentAnalysis = a
	s.analysis.IsAnalyzing = false
}

// SetError records a failure and ends the analyzing state.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysis.Error = msg
	s.analysis.IsAnalyzing = false
}

// ClearAnalysis resets analysis, chat, file tree and diagrams.
func (s *Store) ClearAnalysis() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysis = AnalysisState{}
	s.chat = ChatState{}
	s.fileTree = nil
	s.currentDiagram = ""
	s.diagramHistory = nil
}

// --- chat ---

func (s *Store) AddMessage(m domain.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat.Messages = append(s.chat.Messages, m)
}

func (s *Store) AddMessages(ms []domain.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat.Messages = append(s.chat.Messages, ms...)
}

// UpdateLastMessage replaces the content of the last message, which must be
// an assistant message.
func (s *Store) UpdateLastMessage(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, err := s.lastAssistant()
	if err != nil {
		return err
	}
	last.Content = content
	return nil
}

// AppendToLastMessage concatenates increment to the last message, which must
// be an assistant message. Otherwise the state is left unchanged.
func (s *Store) AppendToLastMessage(increment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, err := s.lastAssistant()
	if err != nil {
		return err
	}
	last.Content += increment
	return nil
}

func (s *Store) lastAssistant() (*domain.ChatMessage, error) {
	n := len(s.chat.Messages)
	if n == 0 || s.chat.Messages[n-1].Role != domain.RoleAssistant {
		return nil, ErrNoAssistantMessage
	}
	return &s.chat.Messages[n-1], nil
}

func (s *Store) SetStreaming(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat.IsStreaming = v
}

func (s *Store) ClearChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = ChatState{}
}

// --- settings ---

func (s *Store) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.APIKey = key
}

// SetModel selects one of domain.KnownModels.
func (s *Store) SetModel(model string) error {
	if !domain.IsKnownModel(model) {
		return fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Model = model
	return nil
}

func (s *Store) SetGitHubToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.GitHubToken = token
}

// --- view ---

func (s *Store) SetActiveTab(tab string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTab = tab
}

func (s *Store) SetSidebarCollapsed(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sidebarCollapsed = v
}

func (s *Store) SetSelectedFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedFile = path
}

func (s *Store) SetFileTree(tree []domain.FileNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileTree = tree
}

// ToggleFolder expands a collapsed folder or collapses an expanded one.
func (s *Store) ToggleFolder(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expandedFolders[path]; ok {
		delete(s.expandedFolders, path)
	} else {
		s.expandedFolders[path] = struct{}{}
	}
}

// ExpandAll expands every directory of the current file tree.
func (s *Store) ExpandAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expandedFolders = make(map[string]struct{})
	for _, p := range domain.FolderPaths(s.fileTree) {
		s.expandedFolders[p] = struct{}{}
	}
}

func (s *Store) CollapseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expandedFolders = make(map[string]struct{})
}

func (s *Store) IsExpanded(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.expandedFolders[path]
	return ok
}

func (s *Store) SetChatPanelOpen(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatPanelOpen = v
}

func (s *Store) ToggleChatPanel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatPanelOpen = !s.chatPanelOpen
}

func (s *Store) SetCurrentDiagram(d string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentDiagram = d
}

// AddToDiagramHistory appends d, keeping the last MaxDiagramHistory entries.
func (s *Store) AddToDiagramHistory(d string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagramHistory = append(s.diagramHistory, d)
	if over := len(s.diagramHistory) - MaxDiagramHistory; over > 0 {
		s.diagramHistory = slices.Clone(s.diagramHistory[over:])
	}
}

// --- persistence ---

// Persisted returns the subset of state kept across sessions.
func (s *Store) Persisted() Persisted {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings := s.settings
	collapsed := s.sidebarCollapsed
	return Persisted{
		Settings:         &settings,
		SidebarCollapsed: &collapsed,
		ExpandedFolders:  s.expandedList(),
	}
}

// Restore merges a persisted subset into the store.
func (s *Store) Restore(p Persisted) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Settings != nil {
		s.settings = *p.Settings
	}
	if p.SidebarCollapsed != nil {
		s.sidebarCollapsed = *p.SidebarCollapsed
	}
	s.expandedFolders = make(map[string]struct{}, len(p.ExpandedFolders))
	for _, f := range p.ExpandedFolders {
		s.expandedFolders[f] = struct{}{}
	}
}

// Save writes the persisted subset under StorageKey.
func (s *Store) Save(ctx context.Context, p port.StatePersister) error {
	data, err := json.Marshal(s.Persisted())
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := p.SaveState(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Load restores the persisted subset. Missing state leaves defaults in place.
func (s *Store) Load(ctx context.Context, p port.StatePersister) error {
	data, err := p.LoadState(ctx, StorageKey)
	if errors.Is(err, port.ErrStateNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	var persisted Persisted
	if err := json.Unmarshal(data, &persisted); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	s.Restore(persisted)
	return nil
}

func (s *Store) expandedList() []string {
	out := make([]string, 0, len(s.expandedFolders))
	for f := range s.expandedFolders {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
