package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/msageha/forkbench/internal/logging"
	"github.com/msageha/forkbench/internal/model"
	"github.com/msageha/forkbench/internal/pipeline"
	"github.com/msageha/forkbench/internal/watch"
	"github.com/msageha/forkbench/templates"
)

const version = "1.0.0"

const defaultConfig = "forkbench.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(os.Args[2:])
	case "run":
		runRun(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "version":
		fmt.Printf("forkbench %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runInit(args []string) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	path := filepath.Join(dir, defaultConfig)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "%s already exists\n", path)
		os.Exit(1)
	}
	starter, err := templates.FS.ReadFile("forkbench.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "read starter config: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, starter, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", path)
}

func runRun(args []string) {
	cfg, baseDir := loadConfig(args)
	if err := pipeline.Run(cfg, baseDir); err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}
}

func runWatch(args []string) {
	path := configPath(args)
	cfg, baseDir := loadConfig(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One run up front, then one per config change.
	if err := pipeline.Run(cfg, baseDir); err != nil {
		logrus.WithError(err).Error("run failed")
	}
	err := watch.Watch(ctx, path, 500*time.Millisecond, func() error {
		cfg, err := model.Load(path)
		if err != nil {
			return err
		}
		logging.Configure(cfg.Logging)
		return pipeline.Run(cfg, baseDir)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		os.Exit(1)
	}
}

func configPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultConfig
}

func loadConfig(args []string) (model.Config, string) {
	path := configPath(args)
	cfg, err := model.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logging.Configure(cfg.Logging)
	abs, err := filepath.Abs(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve config path: %v\n", err)
		os.Exit(1)
	}
	return cfg, filepath.Dir(abs)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `forkbench - grade a fleet of repository variants

usage: forkbench <command> [options]

commands:
  init [dir]      write a starter forkbench.yaml
  run [config]    grade the fleet once (default config: forkbench.yaml)
  watch [config]  re-grade whenever the config changes
  version         print the version
  help            show this help`)
}
