// Package fleet discovers the repository set and synchronizes the working
// copies before any grading stage runs.
package fleet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/msageha/forkbench/internal/model"
	"github.com/msageha/forkbench/internal/runner"
)

// Runner is the command execution surface this package needs.
type Runner interface {
	Run(spec runner.Spec, label string) (runner.Result, error)
}

// Discover builds the ordered repository set from the configured source:
// every git working copy directly below source_dir, plus every entry of the
// repos list (located under workdir, cloned by Sync if missing).
func Discover(cfg model.FleetConfig) (model.Fleet, error) {
	var repos []model.Repo
	if cfg.SourceDir != "" {
		entries, err := os.ReadDir(cfg.SourceDir)
		if err != nil {
			return nil, fmt.Errorf("read source dir: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			location := filepath.Join(cfg.SourceDir, entry.Name())
			if _, err := os.Stat(filepath.Join(location, ".git")); err != nil {
				continue
			}
			repos = append(repos, model.Repo{Name: entry.Name(), Location: location})
		}
	}
	for _, r := range cfg.Repos {
		repos = append(repos, model.Repo{Name: r.Name, Location: filepath.Join(cfg.WorkDir, r.Name)})
	}
	if len(repos) == 0 {
		return nil, fmt.Errorf("fleet: no repositories found")
	}
	return model.NewFleet(repos)
}

// Sync clones or fetches every repository concurrently and waits for all of
// them — the global barrier before any checkout. The first failure aborts
// the whole run.
func Sync(run Runner, cfg model.FleetConfig, fleet model.Fleet) error {
	urls := make(map[string]string, len(cfg.Repos))
	for _, r := range cfg.Repos {
		urls[r.Name] = r.URL
	}

	var g errgroup.Group
	for _, repo := range fleet {
		repo := repo
		g.Go(func() error {
			return syncOne(run, repo, urls[repo.Name], cfg.WorkDir)
		})
	}
	return g.Wait()
}

func syncOne(run Runner, repo model.Repo, url, workDir string) error {
	if _, err := os.Stat(filepath.Join(repo.Location, ".git")); err == nil {
		remotes, err := run.Run(runner.Spec{
			Args:    []string{"git", "remote"},
			Dir:     repo.Location,
			Capture: true,
		}, repo.Name)
		if err != nil {
			return fmt.Errorf("list remotes %s: %w", repo.Name, err)
		}
		// Purely local working copies have nothing to synchronize.
		if strings.TrimSpace(remotes.Stdout) == "" {
			return nil
		}
		if err := assertOK(run.Run(runner.Spec{
			Args:    []string{"git", "fetch", "--tags"},
			Dir:     repo.Location,
			Capture: true,
		}, repo.Name)); err != nil {
			return fmt.Errorf("fetch %s: %w", repo.Name, err)
		}
		return nil
	}
	if url == "" {
		return fmt.Errorf("sync %s: no working copy at %s and no clone url", repo.Name, repo.Location)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	if err := assertOK(run.Run(runner.Spec{
		Args:    []string{"git", "clone", url, repo.Location},
		Capture: true,
	}, repo.Name)); err != nil {
		return fmt.Errorf("clone %s: %w", repo.Name, err)
	}
	return nil
}

func assertOK(res runner.Result, err error) error {
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("exit %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}
