package state

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/arturoeanton/code-atlas/internal/adapter/store"
	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := New()
	snap := s.Snapshot()
	assert.Equal(t, domain.DefaultModel, snap.Settings.Model)
	assert.Equal(t, TabOverview, snap.ActiveTab)
	assert.False(t, snap.Analysis.IsAnalyzing)
	assert.Empty(t, snap.Chat.Messages)
	assert.Empty(t, snap.ExpandedFolders)
}

func TestAnalysisLifecycle(t *testing.T) {
	s := New()
	s.SetAnalyzing(true)
	p := domain.ProgressFor(domain.StageDiagrams)
	s.SetProgress(&p)
	assert.True(t, s.Snapshot().Analysis.IsAnalyzing)
	assert.Equal(t, 85, s.Snapshot().Analysis.Progress.Progress)

	s.SetAnalysis(&domain.Analysis{ID: "a1"})
	snap := s.Snapshot()
	assert.False(t, snap.Analysis.IsAnalyzing)
	assert.Equal(t, "a1", snap.Analysis.CurrentAnalysis.ID)

	s.SetAnalyzing(true)
	s.SetError("boom")
	assert.False(t, s.Snapshot().Analysis.IsAnalyzing)
	assert.Equal(t, "boom", s.Snapshot().Analysis.Error)

	s.AddMessage(domain.ChatMessage{Role: domain.RoleUser, Content: "hi"})
	s.SetFileTree([]domain.FileNode{{Name: "a", Path: "a", Type: domain.FileTypeDirectory}})
	s.SetCurrentDiagram("graph TD")
	s.AddToDiagramHistory("graph TD")
	s.SetAPIKey("key")

	s.ClearAnalysis()
	snap = s.Snapshot()
	assert.Nil(t, snap.Analysis.CurrentAnalysis)
	assert.Empty(t, snap.Analysis.Error)
	assert.Empty(t, snap.Chat.Messages)
	assert.Empty(t, snap.FileTree)
	assert.Empty(t, snap.CurrentDiagram)
	assert.Empty(t, snap.DiagramHistory)
	assert.Equal(t, "key", snap.Settings.APIKey, "settings survive a clear")
}

func TestAppendToLastMessage(t *testing.T) {
	s := New()

	require.ErrorIs(t, s.AppendToLastMessage("x"), ErrNoAssistantMessage)

	s.AddMessage(domain.ChatMessage{ID: "u1", Role: domain.RoleUser, Content: "question"})
	err := s.AppendToLastMessage("stray")
	require.ErrorIs(t, err, ErrNoAssistantMessage)
	assert.Equal(t, "question", s.Messages()[0].Content, "user message untouched")
	assert.Len(t, s.Messages(), 1)

	s.AddMessage(domain.ChatMessage{ID: "a1", Role: domain.RoleAssistant})
	require.NoError(t, s.AppendToLastMessage("Hello"))
	require.NoError(t, s.AppendToLastMessage(", world"))
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello, world", msgs[1].Content)

	require.NoError(t, s.UpdateLastMessage("replaced"))
	assert.Equal(t, "replaced", s.Messages()[1].Content)
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := New()
	s.AddMessages([]domain.ChatMessage{
		{Role: domain.RoleUser, Content: "a"},
		{Role: domain.RoleAssistant, Content: "b"},
	})
	msgs := s.Messages()
	msgs[1].Content = "mutated"
	assert.Equal(t, "b", s.Messages()[1].Content)
}

func TestConcurrentAppends(t *testing.T) {
	s := New()
	s.AddMessage(domain.ChatMessage{Role: domain.RoleAssistant})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AppendToLastMessage("x")
		}()
	}
	wg.Wait()
	assert.Len(t, s.Messages()[0].Content, 50)
}

func TestSetModel(t *testing.T) {
	s := New()
	require.NoError(t, s.SetModel(domain.ModelGemini15Pro))
	assert.Equal(t, domain.ModelGemini15Pro, s.Settings().Model)

	err := s.SetModel("gpt-4")
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Equal(t, domain.ModelGemini15Pro, s.Settings().Model)
}

func TestFoldersAndPanels(t *testing.T) {
	s := New()
	s.SetFileTree(domain.BuildTree([]domain.FileInfo{
		{Path: "src", Name: "src", Type: domain.FileTypeDirectory},
		{Path: "src/lib", Name: "lib", Type: domain.FileTypeDirectory},
		{Path: "src/lib/a.go", Name: "a.go", Type: domain.FileTypeFile},
		{Path: "main.go", Name: "main.go", Type: domain.FileTypeFile},
	}))

	s.ToggleFolder("src")
	assert.True(t, s.IsExpanded("src"))
	s.ToggleFolder("src")
	assert.False(t, s.IsExpanded("src"))

	s.ExpandAll()
	assert.Equal(t, []string{"src", "src/lib"}, s.Snapshot().ExpandedFolders)
	s.CollapseAll()
	assert.Empty(t, s.Snapshot().ExpandedFolders)

	s.ToggleChatPanel()
	assert.True(t, s.Snapshot().ChatPanelOpen)
	s.SetChatPanelOpen(false)
	assert.False(t, s.Snapshot().ChatPanelOpen)

	s.SetActiveTab(TabAtlas)
	s.SetSelectedFile("main.go")
	snap := s.Snapshot()
	assert.Equal(t, TabAtlas, snap.ActiveTab)
	assert.Equal(t, "main.go", snap.SelectedFile)
}

func TestDiagramHistoryCapped(t *testing.T) {
	s := New()
	for i := 0; i < 25; i++ {
		s.AddToDiagramHistory(fmt.Sprintf("d%d", i))
	}
	h := s.Snapshot().DiagramHistory
	require.Len(t, h, MaxDiagramHistory)
	assert.Equal(t, "d5", h[0])
	assert.Equal(t, "d24", h[19])
}

func TestPersistedShape(t *testing.T) {
	s := New()
	s.SetAPIKey("k")
	s.SetGitHubToken("t")
	s.SetSidebarCollapsed(true)
	s.ToggleFolder("src")
	s.AddMessage(domain.ChatMessage{Role: domain.RoleUser, Content: "not persisted"})

	raw, err := json.Marshal(s.Persisted())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"settings": {"apiKey": "k", "model": "gemini-1.5-flash", "githubToken": "t"},
		"sidebarCollapsed": true,
		"expandedFolders": ["src"]
	}`, string(raw))
}

func TestRestoreMerge(t *testing.T) {
	s := New()
	s.SetSidebarCollapsed(true)
	s.ToggleFolder("old")

	s.Restore(Persisted{ExpandedFolders: nil})
	snap := s.Snapshot()
	assert.True(t, snap.SidebarCollapsed, "absent field keeps current value")
	assert.Equal(t, domain.DefaultModel, snap.Settings.Model)
	assert.Empty(t, snap.ExpandedFolders, "expanded folders are replaced")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	fresh := New()
	require.NoError(t, fresh.Load(ctx, fs), "missing state is not an error")

	s := New()
	s.SetAPIKey("k")
	require.NoError(t, s.SetModel(domain.ModelGemini20Flash))
	s.ToggleFolder("cmd")
	require.NoError(t, s.Save(ctx, fs))

	restored := New()
	require.NoError(t, restored.Load(ctx, fs))
	snap := restored.Snapshot()
	assert.Equal(t, "k", snap.Settings.APIKey)
	assert.Equal(t, domain.ModelGemini20Flash, snap.Settings.Model)
	assert.Equal(t, []string{"cmd"}, snap.ExpandedFolders)
}

func TestLoadRejectsCorruptState(t *testing.T) {
	ctx := context.Background()
	mem, err := store.NewMemoryStore(1)
	require.NoError(t, err)
	require.NoError(t, mem.SaveState(ctx, StorageKey, []byte(`{"settings": 42}`)))

	assert.Error(t, New().Load(ctx, mem))
}
