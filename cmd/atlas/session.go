package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/arturoeanton/code-atlas/internal/state"
)

// sessionKey holds what the dashboard keeps only in memory; the CLI needs it
// across invocations.
const sessionKey = "code-atlas-session"

type session struct {
	Analysis       *domain.Analysis     `json:"analysis,omitempty"`
	Messages       []domain.ChatMessage `json:"messages"`
	DiagramHistory []string             `json:"diagramHistory"`
}

func loadSession(ctx context.Context, p port.StatePersister, st *state.Store) error {
	var s session
	data, err := p.LoadState(ctx, sessionKey)
	if errors.Is(err, port.ErrStateNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	if s.Analysis != nil {
		st.SetAnalysis(s.Analysis)
		st.SetFileTree(domain.BuildTree(s.Analysis.Tree))
	}
	st.AddMessages(s.Messages)
	for _, d := range s.DiagramHistory {
		st.AddToDiagramHistory(d)
	}
	return nil
}

func saveSession(ctx context.Context, p port.StatePersister, st *state.Store) error {
	snap := st.Snapshot()
	data, err := json.Marshal(session{
		Analysis:       snap.Analysis.CurrentAnalysis,
		Messages:       snap.Chat.Messages,
		DiagramHistory: snap.DiagramHistory,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return p.SaveState(ctx, sessionKey, data)
}
