/*
sources.go - Collaborator interfaces consumed by the engine

PURPOSE:
  The engine reads recipe, enrollment, and unit data through these
  interfaces and writes documents through DocumentStore. Implementations
  live elsewhere (store/sqlite for production, requisition/store for
  in-memory testing).

CONTRACTS:
  - Bulk lookups return maps; identifiers absent from the backing store
    are simply missing from the map, never an error. Defaulting is the
    engine's job.
  - RecipeSource returns only lines whose product is currently active.
  - SaveBatch is atomic: either every document is persisted and has an
    assigned ID, or none are.

SEE ALSO:
  - context.go: The only caller of the read interfaces
  - generator.go: The only caller of DocumentStore
*/
package requisition

import "context"

// RecipeSource provides read-only access to a recipe's ingredient list.
// Lines whose product is inactive are not returned. Order is the
// recipe's own line order and is stable across calls.
type RecipeSource interface {
	RecipeLines(ctx context.Context, recipeID RecipeID) ([]RecipeLine, error)
}

// EnrollmentSource bulk-resolves current enrollment counts. Unknown
// sections are absent from the result map.
type EnrollmentSource interface {
	Enrollment(ctx context.Context, sectionIDs []SectionID) (map[SectionID]int, error)
}

// UnitSource bulk-resolves units of measure for products. Unknown or
// inactive products are absent from the result map.
type UnitSource interface {
	Units(ctx context.Context, productIDs []ProductID) (map[ProductID]Unit, error)
}

// DocumentStore persists assembled documents. SaveBatch writes all
// documents in one transaction and returns them with assigned IDs.
type DocumentStore interface {
	SaveBatch(ctx context.Context, docs []Document) ([]Document, error)
}
