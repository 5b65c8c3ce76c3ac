// Package checkout pins each repository to the ref being graded and prepares
// its working tree.
package checkout

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/msageha/forkbench/internal/model"
	"github.com/msageha/forkbench/internal/runner"
)

var logger = logrus.WithField("component", "checkout")

// Runner is the command execution surface this package needs.
type Runner interface {
	Run(spec runner.Spec, label string) (runner.Result, error)
}

// Git is the version-control query surface the stage depends on.
type Git interface {
	Tags(dir string) ([]string, error)
	Checkout(dir, ref string) error
	CurrentBranch(dir string) (string, error)
	ResetClean(dir string) error
	LastCommitDate(dir, format string) (string, error)
}

// Meta records the ref and commit timestamp selected for a repository.
type Meta struct {
	Tag  string
	Date string
}

// Stage selects a ref per repository, optionally hard-resets the tree, records
// the last commit timestamp and runs the prepare commands. Repositories are
// handled in isolation; the stage holds no cross-repository state beyond its
// configuration.
type Stage struct {
	Git         Git
	Runner      Runner
	RankedTags  []string
	Reset       bool
	DateFormat  string
	Prepare     []string
	SkipPrepare bool
}

// Run processes one repository and returns its ref metadata.
func (s *Stage) Run(repo model.Repo) (Meta, error) {
	ref, err := s.selectRef(repo)
	if err != nil {
		return Meta{}, err
	}
	if s.Reset {
		// Destructive: throws away local modifications and untracked files.
		if err := s.Git.ResetClean(repo.Location); err != nil {
			return Meta{}, fmt.Errorf("reset %s: %w", repo.Name, err)
		}
	}
	date, err := s.Git.LastCommitDate(repo.Location, s.DateFormat)
	if err != nil {
		return Meta{}, fmt.Errorf("commit date %s: %w", repo.Name, err)
	}
	if !s.SkipPrepare {
		s.prepare(repo)
	}
	return Meta{Tag: ref, Date: date}, nil
}

// selectRef walks the ranked tag list in priority order and checks out the
// first tag the repository has. The earliest ranked entry wins, not the most
// recent tag. With no match the current branch name is recorded instead and
// nothing is checked out.
func (s *Stage) selectRef(repo model.Repo) (string, error) {
	tags, err := s.Git.Tags(repo.Location)
	if err != nil {
		// Unreachable or malformed repository: degrade to "no tags".
		logger.WithField("repo", repo.Name).WithError(err).Warn("cannot list tags")
		tags = nil
	}
	have := make(map[string]bool, len(tags))
	for _, t := range tags {
		have[t] = true
	}
	for _, want := range s.RankedTags {
		if !have[want] {
			continue
		}
		if err := s.Git.Checkout(repo.Location, want); err != nil {
			return "", fmt.Errorf("checkout %s@%s: %w", repo.Name, want, err)
		}
		return want, nil
	}
	branch, err := s.Git.CurrentBranch(repo.Location)
	if err != nil {
		return "", fmt.Errorf("current branch %s: %w", repo.Name, err)
	}
	return branch, nil
}

// prepare runs the configured preparation commands sequentially in declaration
// order. Failures are non-fatal: downstream checks are expected to detect any
// resulting breakage.
func (s *Stage) prepare(repo model.Repo) {
	for _, command := range s.Prepare {
		res, err := s.Runner.Run(runner.Spec{
			Command: command,
			Dir:     repo.Location,
			Shell:   true,
		}, repo.Name)
		if err != nil {
			logger.WithField("repo", repo.Name).WithError(err).Warn("prepare command did not start")
			continue
		}
		if res.ExitCode != 0 {
			logger.WithFields(logrus.Fields{
				"repo": repo.Name,
				"exit": res.ExitCode,
			}).Warn("prepare command failed")
		}
	}
}
