/*
assembler.go - Per-section document assembly

PURPOSE:
  Walks the filtered recipe lines for one section, scales each base
  quantity by enrollment against the reference baseline, folds in any
  ad-hoc extra for the same product BEFORE rounding, then emits the
  remaining pure additions. Produces exactly one line per product.

SCALING:
  scaled = quantity * enrollment / ReferenceEnrollment
  A section at the reference enrollment reproduces base quantities
  exactly. Enrollment 0 scales every line to 0; lines are still emitted
  so the document's ingredient list stays complete for inspection.

ROUNDING (applied after scale-and-merge, never before):
  - UNIDAD (discrete count): ceiling to the next whole unit
  - Anything else (mass/volume): 3 decimal places, round-half-up

MERGE INVARIANT:
  A product appearing both in the recipe and in the additions yields one
  merged line, and is never emitted again in the pure-addition pass.
  This is the sole place responsible for per-document product uniqueness.

SEE ALSO:
  - context.go: Builds the inputs consumed here
  - generator.go: Calls assembleDocument once per section
*/
package requisition

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// scalePerEnrollment applies the proportional scaling rule.
func scalePerEnrollment(q decimal.Decimal, enrollment int) decimal.Decimal {
	return q.Mul(decimal.NewFromInt(int64(enrollment))).Div(referenceEnrollment)
}

// roundForUnit applies the unit-aware rounding policy. Quantities are
// non-negative here, so decimal's round-half-away-from-zero is exactly
// round-half-up.
func roundForUnit(q decimal.Decimal, unit Unit) decimal.Decimal {
	if unit.Discrete() {
		return q.Ceil()
	}
	return q.Round(3)
}

// assembleDocument builds one unsaved document for a single section.
// It only reads from the shared context, so sections can be assembled
// independently in any order.
func assembleDocument(req Request, sec SectionContext, dc *demandContext) Document {
	doc := Document{
		RequesterID:   req.RequesterID,
		SectionID:     sec.SectionID,
		RequestedDate: sec.RequestedDate,
		Status:        StatusPending,
		Notes:         req.Notes,
		Lines:         make([]Line, 0, len(dc.lines)+len(dc.order)),
	}

	// Recipe pass. Products with an ad-hoc extra are merged here and
	// marked consumed so the addition pass below skips them.
	consumed := make(map[ProductID]bool, len(dc.units))
	for _, rl := range dc.lines {
		quantity := scalePerEnrollment(rl.BaseQuantity, sec.Enrollment)
		note := ""
		if uc, ok := dc.units[rl.ProductID]; ok {
			quantity = quantity.Add(scalePerEnrollment(uc.Extra, sec.Enrollment))
			note = fmt.Sprintf("includes ad-hoc extra of %s %s (base scale)", uc.Extra, uc.Unit)
			consumed[rl.ProductID] = true
		}
		doc.Lines = append(doc.Lines, Line{
			ProductID: rl.ProductID,
			Quantity:  roundForUnit(quantity, rl.Unit),
			Note:      note,
		})
	}

	// Pure additions: products with extra quantity and no recipe
	// counterpart. A summed extra of zero or less is suppressed to keep
	// no-op entries out of the document.
	for _, pid := range dc.order {
		if consumed[pid] {
			continue
		}
		uc := dc.units[pid]
		if uc.Extra.Sign() <= 0 {
			continue
		}
		quantity := roundForUnit(scalePerEnrollment(uc.Extra, sec.Enrollment), uc.Unit)
		doc.Lines = append(doc.Lines, Line{
			ProductID: pid,
			Quantity:  quantity,
			Note:      fmt.Sprintf("ad-hoc addition of %s %s (base scale)", uc.Extra, uc.Unit),
		})
	}

	return doc
}
