package requisition

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// =============================================================================
// ROUNDING POLICY TESTS
// =============================================================================

func TestRoundForUnit(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		unit     Unit
		want     string
	}{
		{"count unit ceils partial", "7.2", UnitCount, "8"},
		{"count unit keeps whole", "2", UnitCount, "2"},
		{"count unit ceils tiny fraction", "0.001", UnitCount, "1"},
		{"count unit zero stays zero", "0", UnitCount, "0"},
		{"continuous rounds down below half", "0.1234999", "KG", "0.123"},
		{"continuous rounds half up", "0.1235", "KG", "0.124"},
		{"continuous keeps three decimals", "1.2345", "L", "1.235"},
		{"continuous whole number unchanged", "24", "KG", "24"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundForUnit(decimal.RequireFromString(tt.quantity), tt.unit)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestScalePerEnrollment(t *testing.T) {
	tests := []struct {
		name       string
		base       string
		enrollment int
		want       string
	}{
		{"reference enrollment is identity", "3.75", 20, "3.75"},
		{"double enrollment doubles", "10", 40, "20"},
		{"half enrollment halves", "10", 10, "5"},
		{"zero enrollment zeroes", "10", 0, "0"},
		{"odd enrollment", "4", 23, "4.6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scalePerEnrollment(decimal.RequireFromString(tt.base), tt.enrollment)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"scale(%s, %d) = %s, want %s", tt.base, tt.enrollment, got, tt.want)
		})
	}
}

// =============================================================================
// ASSEMBLY TESTS
// =============================================================================

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testRequest() Request {
	return Request{RequesterID: "chef-1", Notes: "weekly run"}
}

func testSection(id SectionID, enrollment int) SectionContext {
	return SectionContext{
		SectionID:     id,
		RequestedDate: time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC),
		Enrollment:    enrollment,
	}
}

func TestAssembleDocument_RecipeOnly(t *testing.T) {
	// GIVEN: Two recipe lines and no additions
	// WHEN: Assembling for a section at double the reference enrollment
	// THEN: Each line is scaled proportionally and carries no note

	dc := &demandContext{
		lines: []RecipeLine{
			{ID: "rl-1", ProductID: "p1", BaseQuantity: d("10"), Unit: "KG"},
			{ID: "rl-2", ProductID: "p2", BaseQuantity: d("4"), Unit: UnitCount},
		},
		units: map[ProductID]UnitContext{},
	}

	doc := assembleDocument(testRequest(), testSection("s1", 40), dc)

	assert.Equal(t, StatusPending, doc.Status)
	assert.Equal(t, "chef-1", doc.RequesterID)
	assert.Len(t, doc.Lines, 2)
	assert.Equal(t, "20", doc.Lines[0].Quantity.String())
	assert.Empty(t, doc.Lines[0].Note)
	assert.Equal(t, "8", doc.Lines[1].Quantity.String())
}

func TestAssembleDocument_MergesAdditionBeforeRounding(t *testing.T) {
	// GIVEN: A recipe product that also has an ad-hoc extra
	// WHEN: Assembling a document
	// THEN: The extra is folded in before rounding, the line carries an
	//       audit note, and the product appears exactly once

	dc := &demandContext{
		lines: []RecipeLine{
			{ID: "rl-1", ProductID: "p1", BaseQuantity: d("10"), Unit: "KG"},
		},
		units: map[ProductID]UnitContext{
			"p1": {ProductID: "p1", Unit: "KG", Extra: d("2")},
		},
		order: []ProductID{"p1"},
	}

	doc := assembleDocument(testRequest(), testSection("s1", 40), dc)

	assert.Len(t, doc.Lines, 1, "merged product must not be emitted twice")
	assert.Equal(t, "24", doc.Lines[0].Quantity.String(), "(10+2)*40/20")
	assert.Contains(t, doc.Lines[0].Note, "ad-hoc extra")
}

func TestAssembleDocument_PureAdditionLine(t *testing.T) {
	// GIVEN: An addition for a product absent from the recipe
	// WHEN: Assembling a document
	// THEN: The product is emitted as a scaled, tagged pure-addition line

	dc := &demandContext{
		lines: []RecipeLine{
			{ID: "rl-1", ProductID: "p1", BaseQuantity: d("10"), Unit: "KG"},
		},
		units: map[ProductID]UnitContext{
			"p9": {ProductID: "p9", Unit: UnitCount, Extra: d("3")},
		},
		order: []ProductID{"p9"},
	}

	doc := assembleDocument(testRequest(), testSection("s1", 10), dc)

	assert.Len(t, doc.Lines, 2)
	addition := doc.Lines[1]
	assert.Equal(t, ProductID("p9"), addition.ProductID)
	assert.Equal(t, "2", addition.Quantity.String(), "ceil(3*10/20) = ceil(1.5)")
	assert.Contains(t, addition.Note, "ad-hoc addition")
}

func TestAssembleDocument_ZeroEnrollmentEmitsZeroLines(t *testing.T) {
	// GIVEN: A section whose enrollment resolved to 0
	// WHEN: Assembling a document
	// THEN: Every surviving line is still emitted, all at quantity 0

	dc := &demandContext{
		lines: []RecipeLine{
			{ID: "rl-1", ProductID: "p1", BaseQuantity: d("10"), Unit: "KG"},
			{ID: "rl-2", ProductID: "p2", BaseQuantity: d("4"), Unit: UnitCount},
		},
		units: map[ProductID]UnitContext{
			"p9": {ProductID: "p9", Unit: "KG", Extra: d("1")},
		},
		order: []ProductID{"p9"},
	}

	doc := assembleDocument(testRequest(), testSection("s1", 0), dc)

	assert.Len(t, doc.Lines, 3)
	for _, line := range doc.Lines {
		assert.True(t, line.Quantity.IsZero(), "line %s should scale to zero", line.ProductID)
	}
}

func TestAssembleDocument_SuppressesZeroExtraPureAddition(t *testing.T) {
	// GIVEN: An addition summing to exactly 0 for a product not in the recipe
	// WHEN: Assembling a document
	// THEN: No line is emitted for it (no-op entries stay out of documents)
	//
	// Regression lock for the suppress-vs-emit policy choice.

	dc := &demandContext{
		units: map[ProductID]UnitContext{
			"p9": {ProductID: "p9", Unit: "KG", Extra: decimal.Zero},
		},
		order: []ProductID{"p9"},
	}

	doc := assembleDocument(testRequest(), testSection("s1", 30), dc)

	assert.Empty(t, doc.Lines)
}

func TestAssembleDocument_ZeroExtraOnRecipeProductStillMerges(t *testing.T) {
	// GIVEN: An addition summing to 0 for a product that IS in the recipe
	// WHEN: Assembling a document
	// THEN: The recipe line is emitted normally with the merge note

	dc := &demandContext{
		lines: []RecipeLine{
			{ID: "rl-1", ProductID: "p1", BaseQuantity: d("10"), Unit: "KG"},
		},
		units: map[ProductID]UnitContext{
			"p1": {ProductID: "p1", Unit: "KG", Extra: decimal.Zero},
		},
		order: []ProductID{"p1"},
	}

	doc := assembleDocument(testRequest(), testSection("s1", 20), dc)

	assert.Len(t, doc.Lines, 1)
	assert.Equal(t, "10", doc.Lines[0].Quantity.String())
	assert.Contains(t, doc.Lines[0].Note, "ad-hoc extra")
}

func TestAssembleDocument_NoDuplicateProductIDs(t *testing.T) {
	// GIVEN: Products in the recipe, in the additions, and in both
	// WHEN: Assembling a document
	// THEN: No product id appears on more than one line

	dc := &demandContext{
		lines: []RecipeLine{
			{ID: "rl-1", ProductID: "p1", BaseQuantity: d("10"), Unit: "KG"},
			{ID: "rl-2", ProductID: "p2", BaseQuantity: d("4"), Unit: UnitCount},
			{ID: "rl-3", ProductID: "p3", BaseQuantity: d("1.5"), Unit: "L"},
		},
		units: map[ProductID]UnitContext{
			"p1": {ProductID: "p1", Unit: "KG", Extra: d("2")},
			"p3": {ProductID: "p3", Unit: "L", Extra: d("0.5")},
			"p9": {ProductID: "p9", Unit: UnitCount, Extra: d("5")},
		},
		order: []ProductID{"p1", "p3", "p9"},
	}

	doc := assembleDocument(testRequest(), testSection("s1", 25), dc)

	seen := make(map[ProductID]bool)
	for _, line := range doc.Lines {
		assert.False(t, seen[line.ProductID], "duplicate product %s in document", line.ProductID)
		seen[line.ProductID] = true
	}
	assert.Len(t, doc.Lines, 4)
}
