// Package schedule runs the configured task stages against a repository.
package schedule

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/msageha/forkbench/internal/model"
	"github.com/msageha/forkbench/internal/runner"
)

var logger = logrus.WithField("component", "schedule")

// Runner is the command execution surface this package needs.
type Runner interface {
	Run(spec runner.Spec, label string) (runner.Result, error)
	Start(spec runner.Spec, label string) (*runner.Handle, error)
}

// Run executes the stages strictly in list order. An optional delay applies
// once per stage before its commands. Task command failures never propagate
// as errors: the stages are build/test actions whose outcome is observed
// later by the rule checks, not by exit-code inspection here.
func Run(run Runner, repo model.Repo, stages []model.TaskStage) {
	for _, stage := range stages {
		if stage.DelaySeconds > 0 {
			time.Sleep(time.Duration(stage.DelaySeconds * float64(time.Second)))
		}
		if stage.Concurrent {
			runConcurrent(run, repo, stage.Commands)
		} else {
			runSequential(run, repo, stage.Commands)
		}
	}
}

// runSequential joins each command before launching the next. A failing
// command does not prevent the remaining commands from running.
func runSequential(run Runner, repo model.Repo, commands []string) {
	for _, command := range commands {
		if _, err := run.Run(spec(command, repo), repo.Name); err != nil {
			logger.WithField("repo", repo.Name).WithError(err).Warn("task command did not start")
		}
	}
}

// runConcurrent launches every command before any is awaited, then joins
// them all. The stage completes only once every handle is joined; ordering
// among the commands is not guaranteed.
func runConcurrent(run Runner, repo model.Repo, commands []string) {
	handles := make([]*runner.Handle, 0, len(commands))
	for _, command := range commands {
		h, err := run.Start(spec(command, repo), repo.Name)
		if err != nil {
			logger.WithField("repo", repo.Name).WithError(err).Warn("task command did not start")
			continue
		}
		handles = append(handles, h)
	}
	for _, h := range handles {
		h.Wait()
	}
}

func spec(command string, repo model.Repo) runner.Spec {
	return runner.Spec{Command: command, Dir: repo.Location, Shell: true}
}
