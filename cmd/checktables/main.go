// Command checktables verifies the engine's static configuration offline:
// the threshold tables (built-in plus an optional YAML override) and the
// recommendation catalog. It exits non-zero on any violation so it can gate
// a deploy.
//
// Usage:
//
//	go run ./cmd/checktables [-thresholds path/to/thresholds.yaml] [-v]
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/hazardwatch/alert-engine/internal/classify"
	"github.com/hazardwatch/alert-engine/internal/dedup"
	"github.com/hazardwatch/alert-engine/internal/domain"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	thresholds := flag.String("thresholds", "", "optional YAML threshold override (same file the engine loads via THRESHOLDS_PATH)")
	verbose := flag.Bool("v", false, "print every table row")
	flag.Parse()

	os.Exit(run(*thresholds, *verbose))
}

func run(thresholdsPath string, verbose bool) int {
	phases := []*phase{
		checkTables(thresholdsPath, verbose),
		checkRecommendations(),
	}

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed > 0 {
		fmt.Printf("\n%d of %d phases failed\n", failed, len(phases))
		return 1
	}
	fmt.Printf("\nall %d phases passed\n", len(phases))
	return 0
}

// checkTables loads the effective tables and re-runs the structural
// validation, then reports what the classifier will actually use.
func checkTables(path string, verbose bool) *phase {
	p := &phase{name: "threshold tables"}

	tables, err := classify.LoadTables(path)
	if err != nil {
		p.errorf("load: %v", err)
		return p
	}
	if err := tables.Validate(); err != nil {
		p.errorf("validate: %v", err)
		return p
	}

	// Every source category must carry at least one table, or readings from
	// that category can never produce an alert.
	for _, category := range domain.Categories {
		table, ok := tables[category]
		if !ok || len(table) == 0 {
			p.errorf("category %s has no threshold table", category)
			continue
		}
		if !verbose {
			continue
		}
		keys := make([]string, 0, len(table))
		for key := range table {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			for _, row := range table[key] {
				fmt.Printf("  %s/%s >= %.1f -> %s/%s\n", category, key, row.Boundary, row.HazardType, row.Severity)
			}
		}
	}

	// Every hazard type must be reachable from some table row.
	reachable := map[domain.HazardType]bool{}
	for _, table := range tables {
		for _, rows := range table {
			for _, row := range rows {
				reachable[row.HazardType] = true
			}
		}
	}
	for _, h := range domain.HazardTypes {
		if !reachable[h] {
			p.errorf("hazard type %s is not reachable from any threshold row", h)
		}
	}
	return p
}

// checkRecommendations requires a non-empty, strictly cumulative
// recommendation list for every (hazard, severity) pair.
func checkRecommendations() *phase {
	p := &phase{name: "recommendation catalog"}

	for _, h := range domain.HazardTypes {
		var prev []string
		for _, s := range domain.Severities {
			recs := dedup.RecommendationsFor(h, s)
			if len(recs) == 0 {
				p.errorf("%s/%s has no recommendations", h, s)
				continue
			}
			if len(recs) < len(prev) {
				p.errorf("%s/%s drops recommendations relative to the tier below", h, s)
			}
			for i, r := range prev {
				if i < len(recs) && recs[i] != r {
					p.errorf("%s/%s rewrites recommendation %d from the tier below", h, s, i)
					break
				}
			}
			prev = recs
		}
	}
	return p
}
