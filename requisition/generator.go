/*
generator.go - The single generation entry point

PURPOSE:
  Generator wires the collaborator interfaces together and exposes one
  operation: Generate. A run validates the request, builds the per-run
  context (all external reads, exactly once), assembles one document per
  section, persists every document in one transactional batch, and
  projects the persisted documents into views.

ATOMICITY:
  The run is all-or-nothing from the caller's point of view. Validation
  failures happen before any external read; the batch write is the only
  operation that can fail after assembly, and a failed write leaves no
  document visible.

SEE ALSO:
  - context.go: Context construction
  - assembler.go: Per-section assembly
  - errors.go: Error taxonomy
*/
package requisition

import (
	"context"
)

// Generator is the requisition generation engine. All fields are
// required. The zero value is not usable; construct with NewGenerator.
type Generator struct {
	recipes    RecipeSource
	enrollment EnrollmentSource
	units      UnitSource
	docs       DocumentStore
}

// NewGenerator creates an engine over the given collaborators.
func NewGenerator(recipes RecipeSource, enrollment EnrollmentSource, units UnitSource, docs DocumentStore) *Generator {
	return &Generator{
		recipes:    recipes,
		enrollment: enrollment,
		units:      units,
		docs:       docs,
	}
}

// Generate produces and persists one requisition document per requested
// section. On success the result holds exactly one view per input
// section (documents keep input section order) plus any non-fatal
// warnings. On failure no document is persisted.
func (e *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	dc, err := e.buildContext(ctx, req)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, len(dc.sections))
	for i, sec := range dc.sections {
		docs[i] = assembleDocument(req, sec, dc)
	}

	saved, err := e.docs.SaveBatch(ctx, docs)
	if err != nil {
		return nil, &PersistError{Err: err}
	}

	views := make([]DocumentView, len(saved))
	for i, doc := range saved {
		views[i] = viewOf(doc)
	}
	return &Result{Documents: views, Warnings: dc.warnings}, nil
}

// validate rejects bad input before any external read occurs.
func validate(req Request) error {
	if req.RequesterID == "" {
		return &ValidationError{Field: "requester_id", Reason: "must not be empty"}
	}
	if len(req.Sections) == 0 {
		return &ValidationError{Field: "sections", Reason: "at least one section is required"}
	}
	for _, s := range req.Sections {
		if s.SectionID == "" {
			return &ValidationError{Field: "sections", Reason: "section id must not be empty"}
		}
	}
	for _, a := range req.Additions {
		if a.ProductID == "" {
			return &ValidationError{Field: "additional_items", Reason: "product id must not be empty"}
		}
		if a.Extra.IsNegative() {
			return &ValidationError{
				Field:  "additional_items",
				Reason: "extra quantity must not be negative (product " + string(a.ProductID) + ")",
			}
		}
	}
	return nil
}
