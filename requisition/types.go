/*
Package requisition provides the per-section requisition generation engine.

PURPOSE:
  Given a base recipe, a set of class sections, and ad-hoc product
  additions, compute the exact ingredient quantities each section must
  requisition, proportionally scaled by enrollment, with unit-aware
  rounding, and persist one requisition document per section.

KEY CONCEPTS IN THIS FILE (types.go):
  - RecipeLine: One ingredient at base scale (calibrated for 20 students)
  - AdditionalItem: Caller-supplied extra quantity for a product
  - UnitContext/SectionContext: Read-only per-run context, built once
  - Document/Line: The generated requisition and its per-product lines

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Immutability: Context values are built once per run, never mutated
  3. Type Safety: Strong typing for IDs prevents mixing product/section IDs
  4. Explicit identity: requesterID is a request field, never ambient state

SEE ALSO:
  - context.go: Per-run context construction (read external data once)
  - assembler.go: Scaling, merging, and rounding per section
  - generator.go: The single generation entry point
*/
package requisition

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type SectionID string
type RecipeID string
type RecipeLineID string
type DocumentID string

// =============================================================================
// UNITS
// =============================================================================

// Unit is a product's unit of measure. UnitCount is the only discrete
// unit; everything else (mass, volume) is treated as continuous.
type Unit string

// UnitCount is the discrete count unit. Partial units are never
// purchasable, so quantities in this unit round up to whole numbers.
const UnitCount Unit = "UNIDAD"

// Discrete reports whether quantities in this unit must be whole numbers.
func (u Unit) Discrete() bool { return u == UnitCount }

// =============================================================================
// SCALING BASELINE
// =============================================================================

// ReferenceEnrollment is the enrollment a recipe's base quantities are
// calibrated against. A section with this enrollment reproduces the base
// quantities exactly.
const ReferenceEnrollment = 20

var referenceEnrollment = decimal.NewFromInt(ReferenceEnrollment)

// =============================================================================
// RECIPE DATA (external, read-only)
// =============================================================================

// RecipeLine is one ingredient of a recipe at base scale. The unit is
// carried along from the product catalog so no second lookup is needed
// for recipe-covered products.
type RecipeLine struct {
	ID           RecipeLineID
	ProductID    ProductID
	BaseQuantity decimal.Decimal
	Unit         Unit
}

// =============================================================================
// REQUEST INPUT
// =============================================================================

// AdditionalItem is a caller-supplied extra quantity for a product,
// independent of the recipe. Repeated entries for the same product are
// additive.
type AdditionalItem struct {
	ProductID ProductID
	Extra     decimal.Decimal
}

// SectionRequest names one section to generate a document for, with the
// requested delivery date.
type SectionRequest struct {
	SectionID     SectionID
	RequestedDate time.Time
}

// Request is the single input to Generator.Generate. RequesterID is
// supplied explicitly by the calling layer; the engine never reads
// identity from ambient state.
type Request struct {
	RequesterID     string
	Sections        []SectionRequest
	RecipeID        RecipeID // empty means no recipe; additions only
	ExcludedLineIDs []RecipeLineID
	Additions       []AdditionalItem
	Notes           string
}

// =============================================================================
// PER-RUN CONTEXT (derived, ephemeral)
// =============================================================================

// UnitContext is the resolved view of one ad-hoc addition product: its
// unit of measure and the summed extra quantity. Exists only for
// products that appear in additions.
type UnitContext struct {
	ProductID ProductID
	Unit      Unit
	Extra     decimal.Decimal
}

// SectionContext is the resolved view of one requested section.
// Enrollment defaults to 0 when the section is unknown to the
// enrollment source; that is not an error.
type SectionContext struct {
	SectionID     SectionID
	RequestedDate time.Time
	Enrollment    int
}

// =============================================================================
// REQUISITION DOCUMENT (created by this engine, persisted)
// =============================================================================

// Status is a document's lifecycle state. The engine only ever creates
// documents in StatusPending; approval and rejection are transitions
// owned by an external workflow.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Line is one product's computed quantity within a document. Quantity is
// always non-negative and already rounded; nothing downstream rounds
// again. Note is set only for merged or pure-addition lines.
type Line struct {
	ProductID ProductID
	Quantity  decimal.Decimal
	Note      string
}

// Document is one generated requisition for a single section and
// delivery date. Lines are owned exclusively by their document and hold
// at most one entry per product. ID is assigned by the DocumentStore on
// save and is empty before that.
type Document struct {
	ID            DocumentID
	RequesterID   string
	SectionID     SectionID
	RequestedDate time.Time
	Status        Status
	Notes         string
	Lines         []Line
}

// =============================================================================
// RESPONSE PROJECTION
// =============================================================================

// LineView projects a persisted line for callers and test assertions.
type LineView struct {
	ProductID ProductID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Note      string          `json:"note,omitempty"`
}

// DocumentView projects a persisted document. Line-level computed
// quantities are exposed so results are verifiable by the caller.
type DocumentView struct {
	ID            DocumentID `json:"id"`
	RequesterID   string     `json:"requester_id"`
	SectionID     SectionID  `json:"section_id"`
	RequestedDate time.Time  `json:"requested_date"`
	Status        Status     `json:"status"`
	Notes         string     `json:"notes,omitempty"`
	Lines         []LineView `json:"lines"`
}

// Result is the outcome of one generation run: exactly one document per
// requested section, plus non-fatal warnings (unknown addition products,
// unknown exclusion ids) recorded along the way.
type Result struct {
	Documents []DocumentView
	Warnings  []string
}

func viewOf(doc Document) DocumentView {
	lines := make([]LineView, len(doc.Lines))
	for i, l := range doc.Lines {
		lines[i] = LineView{ProductID: l.ProductID, Quantity: l.Quantity, Note: l.Note}
	}
	return DocumentView{
		ID:            doc.ID,
		RequesterID:   doc.RequesterID,
		SectionID:     doc.SectionID,
		RequestedDate: doc.RequestedDate,
		Status:        doc.Status,
		Notes:         doc.Notes,
		Lines:         lines,
	}
}
