package model

import (
	"fmt"

	yamlv3 "gopkg.in/yaml.v3"
)

// RuleSet is the ordered list of rules from the `rules` config mapping.
// YAML mapping order is the declaration order, which fixes both check
// execution order and report column order, so the set decodes from the
// document nodes directly instead of going through a Go map.
type RuleSet []Rule

// Rule groups named criteria under one rule name.
type Rule struct {
	Name     string
	Criteria []Criterion
}

// Criterion is one gradable dimension: an ordered list of checks reduced to a
// single weighted score.
type Criterion struct {
	Name         string
	Weight       float64
	AllowPartial bool
	Checks       []Check
}

// Check compares one captured command output against an expected string.
type Check struct {
	Command       string
	Stdout        string
	PartialWeight float64
}

type criterionSpec struct {
	Checks                []checkSpec `yaml:"checks"`
	Weight                *float64    `yaml:"weight"`
	PartialWeightsAllowed bool        `yaml:"partial_weights_allowed"`
}

type checkSpec struct {
	Command       string   `yaml:"command"`
	Stdout        string   `yaml:"stdout"`
	PartialWeight *float64 `yaml:"partial_weight"`
}

func (rs *RuleSet) UnmarshalYAML(node *yamlv3.Node) error {
	if node.Kind != yamlv3.MappingNode {
		return fmt.Errorf("rules: expected a mapping")
	}
	for i := 0; i < len(node.Content); i += 2 {
		rule := Rule{Name: node.Content[i].Value}
		critNode := node.Content[i+1]
		if critNode.Kind != yamlv3.MappingNode {
			return fmt.Errorf("rule %q: expected a mapping of criteria", rule.Name)
		}
		for j := 0; j < len(critNode.Content); j += 2 {
			name := critNode.Content[j].Value
			var spec criterionSpec
			if err := critNode.Content[j+1].Decode(&spec); err != nil {
				return fmt.Errorf("rule %q criterion %q: %w", rule.Name, name, err)
			}
			rule.Criteria = append(rule.Criteria, spec.criterion(name))
		}
		*rs = append(*rs, rule)
	}
	return nil
}

func (s criterionSpec) criterion(name string) Criterion {
	crit := Criterion{Name: name, Weight: 1, AllowPartial: s.PartialWeightsAllowed}
	if s.Weight != nil {
		crit.Weight = *s.Weight
	}
	for _, cs := range s.Checks {
		check := Check{Command: cs.Command, Stdout: cs.Stdout, PartialWeight: 1}
		if cs.PartialWeight != nil {
			check.PartialWeight = *cs.PartialWeight
		}
		crit.Checks = append(crit.Checks, check)
	}
	return crit
}
