package config

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Variable is one immutable row of the variable table: a derived output
// field named Alias, owned by Dataset, defined by Expression. Expression is
// either a single raw code, an arithmetic formula over raw codes and other
// aliases, or a rank operation.
type Variable struct {
	Alias      string
	Dataset    string
	Expression string
}

// Required variable table columns.
const (
	colAlias    = "alias"
	colDataset  = "dataset"
	colVariable = "variable"
)

// LoadVariables reads the variable table CSV. Declaration order is
// preserved; it determines the output column order downstream. Every schema
// problem is collected and reported together in a *SchemaError.
func LoadVariables(path string) ([]Variable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open variable table: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read variable table %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, &SchemaError{Problems: []string{fmt.Sprintf("%s is empty: missing header row", path)}}
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.TrimSpace(name)] = i
	}

	var problems []string
	for _, required := range []string{colAlias, colDataset, colVariable} {
		if _, ok := cols[required]; !ok {
			problems = append(problems, fmt.Sprintf("missing required column %q", required))
		}
	}
	if len(problems) > 0 {
		return nil, &SchemaError{Problems: problems}
	}

	var vars []Variable
	seen := make(map[string]bool)
	for i, rec := range records[1:] {
		line := i + 2 // 1-based, after the header
		alias := strings.TrimSpace(rec[cols[colAlias]])
		dataset := strings.TrimSpace(rec[cols[colDataset]])
		// Collapse newlines and runs of whitespace inside the expression.
		expression := strings.Join(strings.Fields(rec[cols[colVariable]]), " ")

		if alias == "" {
			problems = append(problems, fmt.Sprintf("line %d: empty alias", line))
		} else if seen[alias] {
			problems = append(problems, fmt.Sprintf("line %d: duplicate alias %q", line, alias))
		}
		seen[alias] = true
		if dataset == "" {
			problems = append(problems, fmt.Sprintf("line %d: empty dataset for alias %q", line, alias))
		}
		if expression == "" {
			problems = append(problems, fmt.Sprintf("line %d: empty expression for alias %q", line, alias))
		}

		vars = append(vars, Variable{Alias: alias, Dataset: dataset, Expression: expression})
	}

	if len(problems) > 0 {
		return nil, &SchemaError{Problems: problems}
	}
	return vars, nil
}
