package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/layercfg/internal/export"
	"github.com/dusk-indust/layercfg/internal/orchestrator"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// fixtureDirs lays out a data dir with one core and a user dir with one
// extension, returning the flags that point at them.
func fixtureDirs(t *testing.T) []string {
	t.Helper()
	root := t.TempDir()
	data := filepath.Join(root, "data")
	user := filepath.Join(root, "user")
	writeFile(t, filepath.Join(data, "cores.yml"), "core:\n  - id: default\n    path: core/_main.yml\n")
	writeFile(t, filepath.Join(data, "core", "_main.yml"), "units:\n  unit_type:\n    id: Spearman\n")
	writeFile(t, filepath.Join(user, "data", "add-ons", "heroes", "_main.yml"), "era:\n  id: heroes_era\n")
	return []string{"--data-dir", data, "--user-data-dir", user}
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRun_ResolveThenStatusAndExport(t *testing.T) {
	dirs := fixtureDirs(t)

	out, err := runCmd(t, append([]string{"resolve", "-q", "-D", "MULTIPLAYER"}, dirs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "State: ready")
	assert.Contains(t, out, "Core: default")
	assert.Contains(t, out, "heroes")

	out, err = runCmd(t, append([]string{"status", "--json"}, dirs...)...)
	require.NoError(t, err)
	var snap orchestrator.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.True(t, snap.Resolved)
	assert.Equal(t, []string{"MULTIPLAYER"}, snap.Flags)

	out, err = runCmd(t, append([]string{"export"}, dirs...)...)
	require.NoError(t, err)
	var exp export.ResolutionExport
	require.NoError(t, json.Unmarshal([]byte(out), &exp))
	require.Len(t, exp.Layers, 2)
	assert.Equal(t, "heroes", exp.Layers[1].ID)
	assert.Equal(t, []export.EntryExport{{Tag: "era", ID: "heroes_era"}}, exp.Layers[1].Entries)
}

func TestRun_StatusBeforeResolve(t *testing.T) {
	out, err := runCmd(t, append([]string{"status"}, fixtureDirs(t)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "No configuration resolved yet.")
}

func TestRun_ExportBeforeResolve(t *testing.T) {
	_, err := runCmd(t, append([]string{"export"}, fixtureDirs(t)...)...)
	assert.Error(t, err)
}

func TestRun_Diagram(t *testing.T) {
	out, err := runCmd(t, append([]string{"diagram"}, fixtureDirs(t)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, `["era:heroes_era"]`)
}

func TestRun_ResolvePresets(t *testing.T) {
	dirs := fixtureDirs(t)
	out, err := runCmd(t, append([]string{"resolve", "-q", "--preset", "editor", "--json"}, dirs...)...)
	require.NoError(t, err)
	var snap orchestrator.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, []string{"EDITOR"}, snap.Flags)

	_, err = runCmd(t, append([]string{"resolve", "--preset", "bogus"}, dirs...)...)
	assert.ErrorContains(t, err, "unknown preset")

	_, err = runCmd(t, append([]string{"resolve", "--mode", "sometimes"}, dirs...)...)
	assert.ErrorContains(t, err, "unknown mode")
}

func TestRun_ResolveMissingCoreFails(t *testing.T) {
	root := t.TempDir()
	out, err := runCmd(t, "resolve", "-q", "--data-dir", filepath.Join(root, "none"), "--user-data-dir", filepath.Join(root, "user"))
	assert.Error(t, err)
	assert.Contains(t, out, "Last error:")
}

func TestRun_Commands(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)

	_, err = runCmd(t)
	assert.Error(t, err)

	_, err = runCmd(t, "bogus")
	assert.ErrorContains(t, err, "unknown command")

	_, err = runCmd(t, "status", "extra-arg")
	assert.ErrorContains(t, err, "unexpected arguments")
}

func TestParseMode(t *testing.T) {
	m, err := parseMode("allow-superset")
	require.NoError(t, err)
	assert.Equal(t, "allow-superset", m.String())
}
