// Package report assembles the grading table and serializes it as CSV.
package report

import (
	"strconv"

	"github.com/msageha/forkbench/internal/checkout"
	"github.com/msageha/forkbench/internal/model"
	"github.com/msageha/forkbench/internal/rules"
)

// Row maps field names to values for one output line.
type Row map[string]string

// Table is an ordered field set with one row per repository, plus verbatim
// extra rows carried over from a template.
type Table struct {
	Fields []string
	Rows   []Row
	Extra  []Row
}

// Build assembles the computed table: the intrinsic fields name, tag, date
// first, then one column per criterion in declaration order, with one row per
// repository in fleet (lexicographic) order. board may be nil when the rule
// checks were skipped.
func Build(fleet model.Fleet, metas map[string]checkout.Meta, board *rules.Board) *Table {
	t := &Table{Fields: []string{"name", "tag", "date"}}
	if board != nil {
		t.Fields = append(t.Fields, board.Fields()...)
	}
	for _, repo := range fleet {
		row := Row{"name": repo.Name}
		if meta, ok := metas[repo.Name]; ok {
			row["tag"] = meta.Tag
			row["date"] = meta.Date
		}
		if board != nil {
			for _, field := range board.Fields() {
				if score, ok := board.Cell(repo.Name, field); ok {
					row[field] = strconv.FormatFloat(score, 'g', -1, 64)
				}
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Merge combines a template table with the computed one. The template
// contributes any extra fields (appended after the computed fields, in
// template order), the row order for the repositories it names, seed values
// for fields the computed side does not know, and its verbatim extra rows.
// Computed values win on key collision; template rows naming repositories
// without computed values still appear.
func Merge(template, computed *Table) *Table {
	if template == nil {
		return computed
	}

	merged := &Table{Fields: append([]string(nil), computed.Fields...)}
	known := make(map[string]bool, len(merged.Fields))
	for _, f := range merged.Fields {
		known[f] = true
	}
	for _, f := range template.Fields {
		if !known[f] {
			merged.Fields = append(merged.Fields, f)
			known[f] = true
		}
	}

	computedByName := make(map[string]Row, len(computed.Rows))
	for _, row := range computed.Rows {
		computedByName[row["name"]] = row
	}

	seen := make(map[string]bool, len(template.Rows))
	for _, seed := range template.Rows {
		name := seed["name"]
		row := make(Row, len(seed))
		for k, v := range seed {
			row[k] = v
		}
		for k, v := range computedByName[name] {
			row[k] = v
		}
		merged.Rows = append(merged.Rows, row)
		seen[name] = true
	}
	// Computed rows keep their lexicographic order behind the template rows.
	for _, row := range computed.Rows {
		if !seen[row["name"]] {
			merged.Rows = append(merged.Rows, row)
		}
	}

	merged.Extra = append(append([]Row(nil), template.Extra...), computed.Extra...)
	return merged
}
