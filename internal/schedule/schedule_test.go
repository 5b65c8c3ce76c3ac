package schedule

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/forkbench/internal/model"
	"github.com/msageha/forkbench/internal/runner"
)

func quietRunner() *runner.Runner {
	log := logrus.New()
	log.SetOutput(io.Discard)
	r := runner.New(log)
	r.SetQuiet(true)
	return r
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestRun_SequentialStagePreservesOrder(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "order")
	repo := model.Repo{Name: "alpha", Location: dir}

	// The first command finishes late; with sequential execution the second
	// must still observe its output first.
	Run(quietRunner(), repo, []model.TaskStage{{
		Commands: []string{
			"sleep 0.3 && echo first >> order",
			"echo second >> order",
		},
	}})

	assert.Equal(t, []string{"first", "second"}, readLines(t, out))
}

func TestRun_SequentialFailureDoesNotShortCircuit(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "order")
	repo := model.Repo{Name: "alpha", Location: dir}

	Run(quietRunner(), repo, []model.TaskStage{{
		Commands: []string{
			"exit 1",
			"echo survived >> order",
		},
	}})

	assert.Equal(t, []string{"survived"}, readLines(t, out))
}

func TestRun_ConcurrentStageJoinsEveryCommand(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "counter")
	repo := model.Repo{Name: "alpha", Location: dir}

	// Both commands append before the stage may return; order is not
	// asserted, only completion.
	Run(quietRunner(), repo, []model.TaskStage{{
		Concurrent: true,
		Commands: []string{
			"sleep 0.2 && echo a >> counter",
			"echo b >> counter",
		},
	}})

	assert.Len(t, readLines(t, out), 2)
}

func TestRun_ConcurrentCommandsOverlap(t *testing.T) {
	dir := t.TempDir()
	repo := model.Repo{Name: "alpha", Location: dir}

	start := time.Now()
	Run(quietRunner(), repo, []model.TaskStage{{
		Concurrent: true,
		Commands:   []string{"sleep 0.4", "sleep 0.4", "sleep 0.4"},
	}})
	elapsed := time.Since(start)

	// Three overlapping sleeps must not take three times as long.
	assert.Less(t, elapsed, 1*time.Second)
	assert.GreaterOrEqual(t, elapsed, 400*time.Millisecond)
}

func TestRun_DelayAppliesOncePerStage(t *testing.T) {
	dir := t.TempDir()
	repo := model.Repo{Name: "alpha", Location: dir}

	start := time.Now()
	Run(quietRunner(), repo, []model.TaskStage{{
		DelaySeconds: 0.3,
		Commands:     []string{"true", "true"},
	}})
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, 600*time.Millisecond)
}

func TestRun_StagesExecuteInListOrder(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "stages")
	repo := model.Repo{Name: "alpha", Location: dir}

	Run(quietRunner(), repo, []model.TaskStage{
		{Concurrent: true, Commands: []string{"sleep 0.2 && echo one >> stages"}},
		{Commands: []string{"echo two >> stages"}},
	})

	assert.Equal(t, []string{"one", "two"}, readLines(t, out))
}
