// Package rules evaluates the configured criteria against every repository
// and assembles the score board.
package rules

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/msageha/forkbench/internal/model"
	"github.com/msageha/forkbench/internal/runner"
)

var logger = logrus.WithField("component", "rules")

// Runner is the command execution surface this package needs.
type Runner interface {
	Run(spec runner.Spec, label string) (runner.Result, error)
}

// FieldName returns the report column for a rule/criterion pair.
func FieldName(rule, criterion string) string {
	return rule + "-" + criterion
}

// CellKey identifies one score cell.
type CellKey struct {
	Repo  string
	Field string
}

// Board holds the per-(repository, criterion) scores. Every cell is written
// exactly once during evaluation and never mutated afterwards; the board is
// passed by ownership to the report stage.
type Board struct {
	fields []string
	cells  map[CellKey]float64
}

// Fields returns the criterion columns in rule/criterion declaration order.
func (b *Board) Fields() []string {
	return b.fields
}

// Cell returns the score for a repository/field pair.
func (b *Board) Cell(repo, field string) (float64, bool) {
	score, ok := b.cells[CellKey{Repo: repo, Field: field}]
	return score, ok
}

// Engine runs the check commands and reduces their results into scores.
type Engine struct {
	Runner Runner
}

// Evaluate walks every criterion in declaration order and, per criterion,
// every repository in fleet order: all repositories are scored for one
// criterion before the next criterion starts. Evaluation holds no state
// between runs, so re-evaluating an unchanged tree yields identical cells.
func (e *Engine) Evaluate(fleet model.Fleet, rules model.RuleSet) *Board {
	board := &Board{cells: make(map[CellKey]float64)}
	for _, rule := range rules {
		for _, crit := range rule.Criteria {
			field := FieldName(rule.Name, crit.Name)
			board.fields = append(board.fields, field)
			for _, repo := range fleet {
				score := e.scoreCriterion(repo, crit)
				board.cells[CellKey{Repo: repo.Name, Field: field}] = score
				logger.WithFields(logrus.Fields{
					"repo":  repo.Name,
					"field": field,
					"score": score,
				}).Debug("criterion scored")
			}
		}
	}
	return board
}

// scoreCriterion runs the criterion's checks in declaration order and reduces
// them to gained/total * weight. On a mismatch in an all-or-nothing criterion
// the score is zero and the remaining check commands are not issued at all:
// no later result can change a zeroed score.
func (e *Engine) scoreCriterion(repo model.Repo, crit model.Criterion) float64 {
	var total, gained float64
	for _, check := range crit.Checks {
		total += check.PartialWeight
		if e.matches(repo, check) {
			gained += check.PartialWeight
			continue
		}
		if !crit.AllowPartial {
			return 0
		}
	}
	if total <= 0 {
		// Rejected at config load; guard the division anyway.
		return 0
	}
	return gained / total * crit.Weight
}

// matches runs the check command with captured stdout, strips exactly one
// trailing newline and byte-compares the rest against the expected output.
// A command that cannot start counts as a mismatch.
func (e *Engine) matches(repo model.Repo, check model.Check) bool {
	res, err := e.Runner.Run(runner.Spec{
		Command: check.Command,
		Dir:     repo.Location,
		Shell:   true,
		Capture: true,
	}, repo.Name)
	if err != nil {
		logger.WithField("repo", repo.Name).WithError(err).Warn("check command did not start")
		return false
	}
	return strings.TrimSuffix(res.Stdout, "\n") == check.Stdout
}
