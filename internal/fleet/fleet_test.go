package fleet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/forkbench/internal/model"
	"github.com/msageha/forkbench/internal/runner"
)

// stubRunner records every command and returns canned results.
type stubRunner struct {
	mu       sync.Mutex
	commands []string
	outputs  map[string]string // full command text -> stdout
	fail     map[string]bool   // command substring -> nonzero exit
}

func (s *stubRunner) Run(spec runner.Spec, label string) (runner.Result, error) {
	text := spec.Command
	if len(spec.Args) > 0 {
		text = strings.Join(spec.Args, " ")
	}
	s.mu.Lock()
	s.commands = append(s.commands, text)
	s.mu.Unlock()
	for sub := range s.fail {
		if strings.Contains(text, sub) {
			return runner.Result{ExitCode: 1, Stderr: "boom"}, nil
		}
	}
	return runner.Result{Stdout: s.outputs[text]}, nil
}

func gitDir(t *testing.T, parent, name string) string {
	t.Helper()
	dir := filepath.Join(parent, name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	return dir
}

func TestDiscover_SourceDir(t *testing.T) {
	src := t.TempDir()
	gitDir(t, src, "beta")
	gitDir(t, src, "alpha")
	// Not a repository: no .git below it.
	require.NoError(t, os.MkdirAll(filepath.Join(src, "notes"), 0o755))
	// Plain files are ignored entirely.
	require.NoError(t, os.WriteFile(filepath.Join(src, "README"), nil, 0o644))

	fleet, err := Discover(model.FleetConfig{SourceDir: src})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, fleet.Names())
}

func TestDiscover_ReposListLocatedUnderWorkDir(t *testing.T) {
	fleet, err := Discover(model.FleetConfig{
		Repos:   []model.RemoteRepo{{Name: "b", URL: "u1"}, {Name: "a", URL: "u2"}},
		WorkDir: "/work",
	})
	require.NoError(t, err)
	require.Len(t, fleet, 2)
	assert.Equal(t, "a", fleet[0].Name)
	assert.Equal(t, filepath.Join("/work", "a"), fleet[0].Location)
}

func TestDiscover_Empty(t *testing.T) {
	_, err := Discover(model.FleetConfig{SourceDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no repositories")
}

func TestSync_FetchesExistingClonesMissing(t *testing.T) {
	work := t.TempDir()
	existing := gitDir(t, work, "present")

	cfg := model.FleetConfig{
		Repos:   []model.RemoteRepo{{Name: "missing", URL: "https://example.com/missing.git"}},
		WorkDir: work,
	}
	fleet := model.Fleet{
		{Name: "missing", Location: filepath.Join(work, "missing")},
		{Name: "present", Location: existing},
	}

	stub := &stubRunner{outputs: map[string]string{"git remote": "origin\n"}}
	require.NoError(t, Sync(stub, cfg, fleet))

	joined := strings.Join(stub.commands, "\n")
	assert.Contains(t, joined, "git fetch --tags")
	assert.Contains(t, joined, fmt.Sprintf("git clone https://example.com/missing.git %s", filepath.Join(work, "missing")))
}

func TestSync_LocalOnlyWorkingCopySkipsFetch(t *testing.T) {
	work := t.TempDir()
	existing := gitDir(t, work, "local")
	fleet := model.Fleet{{Name: "local", Location: existing}}

	stub := &stubRunner{}
	require.NoError(t, Sync(stub, model.FleetConfig{WorkDir: work}, fleet))
	assert.Equal(t, []string{"git remote"}, stub.commands)
}

func TestSync_CommandFailureIsFatal(t *testing.T) {
	work := t.TempDir()
	existing := gitDir(t, work, "present")

	fleet := model.Fleet{{Name: "present", Location: existing}}
	stub := &stubRunner{
		outputs: map[string]string{"git remote": "origin\n"},
		fail:    map[string]bool{"fetch": true},
	}

	err := Sync(stub, model.FleetConfig{WorkDir: work}, fleet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch present")
	assert.Contains(t, err.Error(), "boom")
}

func TestSync_MissingWithoutURLIsFatal(t *testing.T) {
	work := t.TempDir()
	fleet := model.Fleet{{Name: "ghost", Location: filepath.Join(work, "ghost")}}

	err := Sync(&stubRunner{}, model.FleetConfig{WorkDir: work}, fleet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no clone url")
}
