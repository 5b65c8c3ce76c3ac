package checkout

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/msageha/forkbench/internal/runner"
)

// CLI implements Git by shelling out to the git binary through the process
// runner, with the repository directory passed explicitly on every call.
type CLI struct {
	Runner Runner
}

func (c *CLI) Tags(dir string) ([]string, error) {
	out, err := c.git(dir, "tag")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func (c *CLI) Checkout(dir, ref string) error {
	_, err := c.git(dir, "checkout", ref)
	return err
}

func (c *CLI) CurrentBranch(dir string) (string, error) {
	return c.git(dir, "rev-parse", "--abbrev-ref", "HEAD")
}

func (c *CLI) ResetClean(dir string) error {
	if _, err := c.git(dir, "reset", "--hard"); err != nil {
		return err
	}
	_, err := c.git(dir, "clean", "-fd")
	return err
}

// LastCommitDate returns the timestamp of the most recent commit on the
// current ref. The format token is opaque here and passed to git verbatim.
func (c *CLI) LastCommitDate(dir, format string) (string, error) {
	return c.git(dir, "log", "-1", "--date=format:"+format, "--pretty=%cd")
}

func (c *CLI) git(dir string, args ...string) (string, error) {
	res, err := c.Runner.Run(runner.Spec{
		Args:    append([]string{"git"}, args...),
		Dir:     dir,
		Capture: true,
	}, filepath.Base(dir))
	if err != nil {
		return "", err
	}
	out := strings.TrimRight(res.Stdout, "\n")
	if res.ExitCode != 0 {
		return out, fmt.Errorf("git %s: exit %d: %s", strings.Join(args, " "), res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return out, nil
}
