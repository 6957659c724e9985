/*
context.go - Per-run demand context construction

PURPOSE:
  Builds the read-only context consumed by the assembler: summed ad-hoc
  additions joined with unit metadata, per-section enrollment, and the
  filtered recipe line list. External data is read exactly once per run,
  before the per-section loop, regardless of how many sections are
  requested. That O(1)-lookup shape is the one performance property this
  subsystem must preserve.

ORDER OF STEPS (order matters):
  1. Sum AdditionalItem extras by product (duplicates are additive)
  2. Resolve units for exactly the surviving products (skip if none)
  3. Resolve enrollment for exactly the requested sections, default 0
  4. Resolve the filtered recipe line list once, independent of section

SEE ALSO:
  - assembler.go: Consumes the context per section
  - sources.go: The read interfaces used here
*/
package requisition

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// demandContext is the fused, read-only input to the per-section loop.
// Built once per generation run and never mutated afterwards.
type demandContext struct {
	lines    []RecipeLine
	units    map[ProductID]UnitContext
	order    []ProductID // addition products in first-seen input order
	sections []SectionContext
	warnings []string
}

func (e *Generator) buildContext(ctx context.Context, req Request) (*demandContext, error) {
	dc := &demandContext{}

	// Step 1: sum additions by product. Repeated product ids add up;
	// they never overwrite.
	totals := make(map[ProductID]decimal.Decimal, len(req.Additions))
	for _, item := range req.Additions {
		if _, seen := totals[item.ProductID]; !seen {
			dc.order = append(dc.order, item.ProductID)
		}
		totals[item.ProductID] = totals[item.ProductID].Add(item.Extra)
	}

	// Step 2: unit metadata, only when there is something to resolve.
	dc.units = make(map[ProductID]UnitContext, len(totals))
	if len(totals) > 0 {
		units, err := e.units.Units(ctx, dc.order)
		if err != nil {
			return nil, fmt.Errorf("resolve units: %w", err)
		}
		kept := dc.order[:0]
		for _, pid := range dc.order {
			unit, ok := units[pid]
			if !ok {
				// Unknown or inactive product. The addition is dropped;
				// one bad product id must not abort the run.
				dc.warnings = append(dc.warnings,
					fmt.Sprintf("addition for unknown product %q ignored", pid))
				continue
			}
			dc.units[pid] = UnitContext{ProductID: pid, Unit: unit, Extra: totals[pid]}
			kept = append(kept, pid)
		}
		dc.order = kept
	}

	// Step 3: enrollment, one bulk read for all requested sections.
	sectionIDs := make([]SectionID, len(req.Sections))
	for i, s := range req.Sections {
		sectionIDs[i] = s.SectionID
	}
	enrollment, err := e.enrollment.Enrollment(ctx, sectionIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve enrollment: %w", err)
	}
	dc.sections = make([]SectionContext, len(req.Sections))
	for i, s := range req.Sections {
		// Missing enrollment defaults to 0: the section still yields a
		// document, with every line scaled to zero.
		dc.sections[i] = SectionContext{
			SectionID:     s.SectionID,
			RequestedDate: s.RequestedDate,
			Enrollment:    enrollment[s.SectionID],
		}
	}

	// Step 4: recipe lines, fetched once and filtered once. A request
	// without a recipe is legal and contributes zero lines.
	if req.RecipeID != "" {
		lines, err := e.recipes.RecipeLines(ctx, req.RecipeID)
		if err != nil {
			return nil, fmt.Errorf("resolve recipe %s: %w", req.RecipeID, err)
		}
		dc.lines, dc.warnings = filterRecipeLines(lines, req.ExcludedLineIDs, dc.warnings)
	}

	return dc, nil
}

// filterRecipeLines drops excluded lines, preserving recipe order.
// Exclusion ids that match no line are reported as warnings, not errors.
func filterRecipeLines(lines []RecipeLine, excluded []RecipeLineID, warnings []string) ([]RecipeLine, []string) {
	if len(excluded) == 0 {
		return lines, warnings
	}

	skip := make(map[RecipeLineID]bool, len(excluded))
	for _, id := range excluded {
		skip[id] = true
	}

	kept := make([]RecipeLine, 0, len(lines))
	for _, l := range lines {
		if skip[l.ID] {
			delete(skip, l.ID)
			continue
		}
		kept = append(kept, l)
	}
	for _, id := range excluded {
		if skip[id] {
			warnings = append(warnings,
				fmt.Sprintf("excluded recipe line %q not found in recipe", id))
			delete(skip, id)
		}
	}
	return kept, warnings
}
