package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/geostat-labs/svindex/internal/config"
	"github.com/geostat-labs/svindex/internal/dag"
	"github.com/geostat-labs/svindex/internal/expr"
	"github.com/geostat-labs/svindex/internal/frame"
)

// SoftFailure is a recovered per-cell evaluation error: the cell became NaN
// and the run continued. Row is -1 when the whole alias column was
// affected.
type SoftFailure struct {
	Alias  string
	Row    int
	Reason string
}

// aliasPlan is the parsed form of one variable, ready for evaluation.
type aliasPlan struct {
	variable   config.Variable
	rankTarget string    // set for rank operations
	tree       expr.Node // set for arithmetic expressions
}

// Evaluate computes every alias over the merged table and returns a new
// table; the input is never mutated. Parse errors and dependency cycles are
// fatal and reported before any alias is evaluated; per-cell arithmetic
// errors are recovered as NaN and collected as soft failures.
func Evaluate(merged *frame.Table, vars []config.Variable, logger *slog.Logger) (*frame.Table, []SoftFailure, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	declared := make(map[string]bool, len(vars))
	for _, v := range vars {
		declared[v.Alias] = true
	}

	// Parse every expression and build the alias dependency graph before
	// evaluating anything. All parse problems are reported together.
	graph := dag.New()
	for _, v := range vars {
		graph.AddAlias(v.Alias)
	}

	plans := make([]aliasPlan, 0, len(vars))
	var problems []string
	for _, v := range vars {
		plan := aliasPlan{variable: v}

		if target, ok := expr.ParseRank(v.Expression); ok {
			plan.rankTarget = target
			if declared[target] {
				if err := graph.AddDependency(v.Alias, target); err != nil {
					return nil, nil, err
				}
			}
			plans = append(plans, plan)
			continue
		}

		tree, err := expr.Parse(v.Expression)
		if err != nil {
			problems = append(problems, fmt.Sprintf("alias %q: %v", v.Alias, err))
			continue
		}
		plan.tree = tree
		for _, ident := range expr.Identifiers(tree) {
			if declared[ident] {
				if err := graph.AddDependency(v.Alias, ident); err != nil {
					return nil, nil, err
				}
			}
		}
		plans = append(plans, plan)
	}
	if len(problems) > 0 {
		return nil, nil, &config.SchemaError{Problems: problems}
	}

	order, err := graph.Sort()
	if err != nil {
		return nil, nil, err
	}

	planByAlias := make(map[string]aliasPlan, len(plans))
	for _, p := range plans {
		planByAlias[p.variable.Alias] = p
	}

	// Working set of numeric columns: raw columns plus aliases computed so
	// far. Aliases already present as merged columns are direct skips.
	columns := make(map[string][]float64)
	for _, name := range merged.Columns() {
		if nums, ok := merged.Numbers(name); ok {
			columns[name] = nums
		}
	}

	rows := merged.Rows()
	var failures []SoftFailure
	computed := make(map[string][]float64, len(plans))

	for _, alias := range order {
		plan := planByAlias[alias]
		if merged.HasColumn(alias) {
			logger.Debug("alias shadows existing column, skipping", "alias", alias)
			continue
		}

		var nums []float64
		switch {
		case plan.rankTarget != "":
			target, ok := columns[plan.rankTarget]
			if !ok {
				nums = nanColumn(rows)
				failures = append(failures, SoftFailure{
					Alias: alias, Row: -1,
					Reason: fmt.Sprintf("rank target %q has no column", plan.rankTarget),
				})
				break
			}
			nums = expr.PercentileRank(target)

		default:
			if name, ok := expr.SingleIdent(plan.tree); ok {
				if col, ok := columns[name]; ok {
					nums = append([]float64(nil), col...)
					break
				}
			}
			var cellErrs []expr.CellError
			nums, cellErrs = expr.Evaluate(plan.tree, columns, rows)
			for _, ce := range cellErrs {
				failures = append(failures, SoftFailure{Alias: alias, Row: ce.Row, Reason: ce.Reason})
			}
		}

		columns[alias] = nums
		computed[alias] = nums
	}

	out := merged.Clone()
	for _, v := range vars {
		nums, ok := computed[v.Alias]
		if !ok {
			continue
		}
		if err := out.AddNumberColumn(v.Alias, nums); err != nil {
			return nil, nil, fmt.Errorf("add alias column %q: %w", v.Alias, err)
		}
	}
	return out, failures, nil
}

func nanColumn(rows int) []float64 {
	nums := make([]float64, rows)
	for i := range nums {
		nums[i] = math.NaN()
	}
	return nums
}
