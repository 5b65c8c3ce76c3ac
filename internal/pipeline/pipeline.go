// Package pipeline drives one full grading run: sync barrier, checkout,
// task stages, rule evaluation, report.
package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/msageha/forkbench/internal/checkout"
	"github.com/msageha/forkbench/internal/fleet"
	"github.com/msageha/forkbench/internal/lock"
	"github.com/msageha/forkbench/internal/model"
	"github.com/msageha/forkbench/internal/report"
	"github.com/msageha/forkbench/internal/rules"
	"github.com/msageha/forkbench/internal/runner"
	"github.com/msageha/forkbench/internal/schedule"
)

var logger = logrus.WithField("component", "pipeline")

// LockFile is created next to the config to serialize runs over a workspace.
const LockFile = ".forkbench.lock"

// Run executes one grading run. baseDir anchors every relative path in the
// config (fleet sources, report output, template). A single control thread
// drives all stages; parallelism exists only through spawned processes — the
// fleet sync barrier and concurrent task stages.
func Run(cfg model.Config, baseDir string) error {
	fcfg := cfg.Fleet
	fcfg.SourceDir = resolve(baseDir, fcfg.SourceDir)
	fcfg.WorkDir = resolve(baseDir, fcfg.WorkDir)

	lk := lock.NewFileLock(filepath.Join(baseDir, LockFile))
	if err := lk.TryLock(); err != nil {
		return err
	}
	defer func() { _ = lk.Unlock() }()

	flt, err := fleet.Discover(fcfg)
	if err != nil {
		return err
	}
	logger.WithField("repos", len(flt)).Info("fleet discovered")

	run := runner.New(logrus.StandardLogger())

	// Global barrier: every repository synced before any checkout starts.
	// A sync failure is fatal and no report is written.
	if err := fleet.Sync(run, fcfg, flt); err != nil {
		return fmt.Errorf("sync fleet: %w", err)
	}

	stage := &checkout.Stage{
		Git:         &checkout.CLI{Runner: run},
		Runner:      run,
		RankedTags:  cfg.RankedAllowedTags,
		Reset:       cfg.Reset,
		DateFormat:  cfg.DateFormat,
		Prepare:     cfg.PrepareCommands,
		SkipPrepare: cfg.Skip.PrepareCommands,
	}
	metas := make(map[string]checkout.Meta, len(flt))
	for _, repo := range flt {
		meta, err := stage.Run(repo)
		if err != nil {
			return fmt.Errorf("checkout %s: %w", repo.Name, err)
		}
		metas[repo.Name] = meta
	}

	if !cfg.Skip.Tasks {
		for _, repo := range flt {
			schedule.Run(run, repo, cfg.SeqTasks)
		}
	}

	var board *rules.Board
	if !cfg.Skip.RuleCheck {
		engine := &rules.Engine{Runner: run}
		board = engine.Evaluate(flt, cfg.Rules)
	}

	table := report.Build(flt, metas, board)
	if cfg.Report.Template != "" {
		template, err := report.ReadCSV(resolve(baseDir, cfg.Report.Template))
		if err != nil {
			return fmt.Errorf("read template: %w", err)
		}
		table = report.Merge(template, table)
	}

	output := resolve(baseDir, cfg.Report.Output)
	if err := report.WriteCSV(output, table); err != nil {
		return err
	}
	logger.WithField("output", output).Info("report written")
	return nil
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
