package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptside/skillgate/internal/session"
)

func seedSessionDB(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "session.db")
	tracker, err := session.Open(dbPath)
	require.NoError(t, err)
	defer tracker.Close()

	ctx := context.Background()
	require.NoError(t, tracker.Record(ctx, "s1", session.FileEvent{Path: "backend/a.ts", Tool: "create"}))
	require.NoError(t, tracker.Record(ctx, "s1", session.FileEvent{Path: "backend/b.ts", Tool: "modify"}))
	require.NoError(t, tracker.Record(ctx, "s2", session.FileEvent{Path: "frontend/c.tsx", Tool: "modify"}))
	return dbPath
}

func runSessionsCommand(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"sessions"}, append(args, "--db", dbPath)...))

	err := cmd.Execute()
	return out.String(), err
}

func TestSessionsList(t *testing.T) {
	dbPath := seedSessionDB(t)

	output, err := runSessionsCommand(t, dbPath, "list")
	require.NoError(t, err)
	assert.Contains(t, output, "s1")
	assert.Contains(t, output, "s2")
}

func TestSessionsShow(t *testing.T) {
	dbPath := seedSessionDB(t)

	output, err := runSessionsCommand(t, dbPath, "show", "s1")
	require.NoError(t, err)
	assert.Contains(t, output, "session s1: 2 event(s)")
	assert.Contains(t, output, "backend/a.ts")
	assert.Contains(t, output, "backend/b.ts")
	assert.Contains(t, output, "structure:")
	assert.Contains(t, output, "backend -> backend/")
}

func TestSessionsShowJSON(t *testing.T) {
	dbPath := seedSessionDB(t)

	output, err := runSessionsCommand(t, dbPath, "show", "s1", "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "s1", data["sessionId"])
	events, ok := data["events"].([]interface{})
	require.True(t, ok)
	assert.Len(t, events, 2)
}

func TestSessionsPrune(t *testing.T) {
	dbPath := seedSessionDB(t)

	// Everything was created just now, so a 24h cutoff prunes nothing.
	output, err := runSessionsCommand(t, dbPath, "prune")
	require.NoError(t, err)
	assert.Contains(t, output, "pruned 0 session(s)")

	// A zero cutoff makes every session stale.
	output, err = runSessionsCommand(t, dbPath, "prune", "--older-than", "0s")
	require.NoError(t, err)
	assert.Contains(t, output, "pruned 2 session(s)")
}
