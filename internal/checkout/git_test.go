package checkout

import (
	"io"
	"os/exec"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/forkbench/internal/model"
	"github.com/msageha/forkbench/internal/runner"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func quietRunner() *runner.Runner {
	log := logrus.New()
	log.SetOutput(io.Discard)
	r := runner.New(log)
	r.SetQuiet(true)
	return r
}

// scratchRepo creates a git repository with one commit and the given tags.
func scratchRepo(t *testing.T, tags ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, args := range [][]string{
		{"init", "-q"},
		{"config", "user.email", "grader@example.com"},
		{"config", "user.name", "grader"},
		{"commit", "--allow-empty", "-q", "-m", "initial"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	for _, tag := range tags {
		cmd := exec.Command("git", "tag", tag)
		cmd.Dir = dir
		require.NoError(t, cmd.Run())
	}
	return dir
}

func TestCLI_Tags(t *testing.T) {
	requireGit(t)
	cli := &CLI{Runner: quietRunner()}
	dir := scratchRepo(t, "v1", "v2")

	tags, err := cli.Tags(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"v1", "v2"}, tags)
}

func TestCLI_TagsEmpty(t *testing.T) {
	requireGit(t)
	cli := &CLI{Runner: quietRunner()}
	dir := scratchRepo(t)

	tags, err := cli.Tags(dir)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestCLI_CheckoutAndCurrentBranch(t *testing.T) {
	requireGit(t)
	cli := &CLI{Runner: quietRunner()}
	dir := scratchRepo(t, "v1")

	branch, err := cli.CurrentBranch(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, branch)

	require.NoError(t, cli.Checkout(dir, "v1"))
	detached, err := cli.CurrentBranch(dir)
	require.NoError(t, err)
	assert.Equal(t, "HEAD", detached)
}

func TestCLI_CheckoutUnknownRefFails(t *testing.T) {
	requireGit(t)
	cli := &CLI{Runner: quietRunner()}
	dir := scratchRepo(t)

	err := cli.Checkout(dir, "no-such-tag")
	require.Error(t, err)
}

func TestCLI_LastCommitDateUsesOpaqueFormat(t *testing.T) {
	requireGit(t)
	cli := &CLI{Runner: quietRunner()}
	dir := scratchRepo(t)

	date, err := cli.LastCommitDate(dir, "%Y")
	require.NoError(t, err)
	assert.Regexp(t, `^\d{4}$`, date)
}

func TestCLI_RankedSelectionAgainstRealRepo(t *testing.T) {
	requireGit(t)
	run := quietRunner()
	dir := scratchRepo(t, "v1")

	stage := &Stage{
		Git:         &CLI{Runner: run},
		Runner:      run,
		RankedTags:  []string{"v2", "v1"},
		DateFormat:  "%Y-%m-%d",
		SkipPrepare: true,
	}
	meta, err := stage.Run(model.Repo{Name: "scratch", Location: dir})
	require.NoError(t, err)
	assert.Equal(t, "v1", meta.Tag)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, meta.Date)
}
