package requisition_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/culina/requisition-engine/requisition"
	"github.com/culina/requisition-engine/requisition/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*requisition.Generator, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	engine := requisition.NewGenerator(mem, mem, mem, mem)
	return engine, mem
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var deliveryDate = time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)

func sectionReq(id requisition.SectionID) requisition.SectionRequest {
	return requisition.SectionRequest{SectionID: id, RequestedDate: deliveryDate}
}

// seedStew loads the recipe used by most tests: p1 continuous, p2 discrete.
func seedStew(mem *store.Memory) {
	mem.SetRecipe("recipe-1", []requisition.RecipeLine{
		{ID: "rl-1", ProductID: "p1", BaseQuantity: d("10"), Unit: "KG"},
		{ID: "rl-2", ProductID: "p2", BaseQuantity: d("4"), Unit: requisition.UnitCount},
	})
	mem.SetUnit("p1", "KG")
	mem.SetUnit("p2", requisition.UnitCount)
}

func lineFor(t *testing.T, doc requisition.DocumentView, pid requisition.ProductID) requisition.LineView {
	t.Helper()
	for _, l := range doc.Lines {
		if l.ProductID == pid {
			return l
		}
	}
	t.Fatalf("no line for product %s in document %s", pid, doc.ID)
	return requisition.LineView{}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestGenerate_EmptySections_RejectedBeforeAnyLookup(t *testing.T) {
	// GIVEN: A request with no sections
	// WHEN: Generating
	// THEN: A validation error is returned and no collaborator was called

	engine, mem := newTestEngine(t)

	_, err := engine.Generate(context.Background(), requisition.Request{
		RequesterID: "chef-1",
		RecipeID:    "recipe-1",
	})

	require.Error(t, err)
	var verr *requisition.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.True(t, requisition.IsClientError(err))

	assert.Zero(t, mem.Calls.RecipeLines, "recipe source must not be called")
	assert.Zero(t, mem.Calls.Enrollment, "enrollment source must not be called")
	assert.Zero(t, mem.Calls.Units, "unit source must not be called")
	assert.Zero(t, mem.Calls.SaveBatch, "nothing must be persisted")
}

func TestGenerate_NegativeExtra_Rejected(t *testing.T) {
	// GIVEN: An addition with a negative extra quantity
	// WHEN: Generating
	// THEN: A validation error is returned before any lookup

	engine, mem := newTestEngine(t)

	_, err := engine.Generate(context.Background(), requisition.Request{
		RequesterID: "chef-1",
		Sections:    []requisition.SectionRequest{sectionReq("s1")},
		Additions:   []requisition.AdditionalItem{{ProductID: "p1", Extra: d("-1")}},
	})

	require.Error(t, err)
	assert.True(t, requisition.IsClientError(err))
	assert.Zero(t, mem.Calls.Units)
	assert.Zero(t, mem.Calls.SaveBatch)
}

func TestGenerate_EmptyRequester_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Generate(context.Background(), requisition.Request{
		Sections: []requisition.SectionRequest{sectionReq("s1")},
	})

	require.Error(t, err)
	assert.True(t, requisition.IsClientError(err))
}

// =============================================================================
// SCALING TESTS
// =============================================================================

func TestGenerate_ReferenceEnrollmentReproducesBaseQuantities(t *testing.T) {
	// GIVEN: A section at exactly the reference enrollment (20)
	// WHEN: Generating from the recipe with no additions
	// THEN: Every computed quantity equals the base quantity

	engine, mem := newTestEngine(t)
	seedStew(mem)
	mem.SetEnrollment("s1", 20)

	result, err := engine.Generate(context.Background(), requisition.Request{
		RequesterID: "chef-1",
		RecipeID:    "recipe-1",
		Sections:    []requisition.SectionRequest{sectionReq("s1")},
	})
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)

	doc := result.Documents[0]
	assert.Equal(t, "10", lineFor(t, doc, "p1").Quantity.String())
	assert.Equal(t, "4", lineFor(t, doc, "p2").Quantity.String())
}

func TestGenerate_ZeroEnrollmentStillYieldsFullDocument(t *testing.T) {
	// GIVEN: A section unknown to the enrollment source
	// WHEN: Generating
	// THEN: One document is still produced with one zero line per ingredient

	engine, mem := newTestEngine(t)
	seedStew(mem)
	// s-ghost deliberately not registered

	result, err := engine.Generate(context.Background(), requisition.Request{
		RequesterID: "chef-1",
		RecipeID:    "recipe-1",
		Sections:    []requisition.SectionRequest{sectionReq("s-ghost")},
	})
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)

	doc := result.Documents[0]
	require.Len(t, doc.Lines, 2, "zero-scaled lines are emitted, not skipped")
	for _, line := range doc.Lines {
		assert.True(t, line.Quantity.IsZero())
	}
}

// =============================================================================
// MERGE AND SUMMATION TESTS
// =============================================================================

func TestGenerate_DuplicateAdditionsSumBeforeUse(t *testing.T) {
	// GIVEN: The same product listed twice in additions (3 + 2)
	// WHEN: Generating
	// THEN: The result is identical to a single addition of 5

	run := func(additions []requisition.AdditionalItem) *requisition.Result {
		engine, mem := newTestEngine(t)
		seedStew(mem)
		mem.SetEnrollment("s1", 40)

		result, err := engine.Generate(context.Background(), requisition.Request{
			RequesterID: "chef-1",
			RecipeID:    "recipe-1",
			Sections:    []requisition.SectionRequest{sectionReq("s1")},
			Additions:   additions,
		})
		require.NoError(t, err)
		return result
	}

	split := run([]requisition.AdditionalItem{
		{ProductID: "p1", Extra: d("3")},
		{ProductID: "p1", Extra: d("2")},
	})
	merged := run([]requisition.AdditionalItem{
		{ProductID: "p1", Extra: d("5")},
	})

	splitLine := lineFor(t, split.Documents[0], "p1")
	mergedLine := lineFor(t, merged.Documents[0], "p1")
	assert.Equal(t, mergedLine.Quantity.String(), splitLine.Quantity.String())
	assert.Equal(t, "30", splitLine.Quantity.String(), "(10+5)*40/20")
}

func TestGenerate_NoDuplicateProductsAcrossRecipeAndAdditions(t *testing.T) {
	// GIVEN: A product present both in the recipe and the additions
	// WHEN: Generating
	// THEN: The document holds exactly one line for it

	engine, mem := newTestEngine(t)
	seedStew(mem)
	mem.SetEnrollment("s1", 20)

	result, err := engine.Generate(context.Background(), requisition.Request{
		RequesterID: "chef-1",
		RecipeID:    "recipe-1",
		Sections:    []requisition.SectionRequest{sectionReq("s1")},
		Additions:   []requisition.AdditionalItem{{ProductID: "p1", Extra: d("2")}},
	})
	require.NoError(t, err)

	doc := result.Documents[0]
	seen := make(map[requisition.ProductID]int)
	for _, line := range doc.Lines {
		seen[line.ProductID]++
	}
	for pid, count := range seen {
		assert.Equal(t, 1, count, "product %s appears %d times", pid, count)
	}
	assert.Equal(t, "12", lineFor(t, doc, "p1").Quantity.String(), "(10+2)*20/20")
}

// =============================================================================
// END-TO-END SCENARIO
// =============================================================================

func TestGenerate_TwoSectionsWithAdditions(t *testing.T) {
	// GIVEN: Recipe [{p1,10 KG},{p2,4 UNIDAD}], sections s1@40 and s2@10,
	//        additions [{p1,2}]
	// WHEN: Generating
	// THEN: s1 yields p1=24, p2=8; s2 yields p1=6, p2=2

	engine, mem := newTestEngine(t)
	seedStew(mem)
	mem.SetEnrollment("s1", 40)
	mem.SetEnrollment("s2", 10)

	result, err := engine.Generate(context.Background(), requisition.Request{
		RequesterID: "chef-1",
		RecipeID:    "recipe-1",
		Sections:    []requisition.SectionRequest{sectionReq("s1"), sectionReq("s2")},
		Additions:   []requisition.AdditionalItem{{ProductID: "p1", Extra: d("2")}},
	})
	require.NoError(t, err)
	require.Len(t, result.Documents, 2, "one document per requested section")

	bySection := make(map[requisition.SectionID]requisition.DocumentView)
	for _, doc := range result.Documents {
		bySection[doc.SectionID] = doc
	}

	s1 := bySection["s1"]
	assert.Equal(t, "24", lineFor(t, s1, "p1").Quantity.String())
	assert.Equal(t, "8", lineFor(t, s1, "p2").Quantity.String())

	s2 := bySection["s2"]
	assert.Equal(t, "6", lineFor(t, s2, "p1").Quantity.String())
	assert.Equal(t, "2", lineFor(t, s2, "p2").Quantity.String())

	// Every document was persisted with an assigned id and PENDING status
	for _, doc := range result.Documents {
		assert.NotEmpty(t, doc.ID)
		assert.Equal(t, requisition.StatusPending, doc.Status)
		assert.Equal(t, deliveryDate, doc.RequestedDate)
	}
	assert.Len(t, mem.Documents(), 2)
}

// =============================================================================
// READ-ONCE PROPERTY
// =============================================================================

func TestGenerate_ExternalDataReadOncePerRun(t *testing.T) {
	// GIVEN: Five sections in one request
	// WHEN: Generating
	// THEN: Each collaborator is called exactly once, and persistence once

	engine, mem := newTestEngine(t)
	seedStew(mem)
	sections := make([]requisition.SectionRequest, 5)
	for i, id := range []requisition.SectionID{"s1", "s2", "s3", "s4", "s5"} {
		mem.SetEnrollment(id, 10+i)
		sections[i] = sectionReq(id)
	}

	_, err := engine.Generate(context.Background(), requisition.Request{
		RequesterID: "chef-1",
		RecipeID:    "recipe-1",
		Sections:    sections,
		Additions:   []requisition.AdditionalItem{{ProductID: "p2", Extra: d("1")}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, mem.Calls.RecipeLines)
	assert.Equal(t, 1, mem.Calls.Enrollment)
	assert.Equal(t, 1, mem.Calls.Units)
	assert.Equal(t, 1, mem.Calls.SaveBatch)
}

func TestGenerate_NoAdditions_SkipsUnitLookup(t *testing.T) {
	// GIVEN: A request without additions
	// WHEN: Generating
	// THEN: The unit source is never called

	engine, mem := newTestEngine(t)
	seedStew(mem)
	mem.SetEnrollment("s1", 20)

	_, err := engine.Generate(context.Background(), requisition.Request{
		RequesterID: "chef-1",
		RecipeID:    "recipe-1",
		Sections:    []requisition.SectionRequest{sectionReq("s1")},
	})
	require.NoError(t, err)

	assert.Zero(t, mem.Calls.Units, "no additions, no unit round trip")
}

// =============================================================================
// DEGRADED INPUT TESTS
// =============================================================================

func TestGenerate_WithoutRecipe_AdditionsOnly(t *testing.T) {
	// GIVEN: No recipe id, only additions
	// WHEN: Generating
	// THEN: The run succeeds with pure-addition documents

	engine, mem := newTestEngine(t)
	mem.SetUnit("p7", "KG")
	mem.SetEnrollment("s1", 30)

	result, err := engine.Generate(context.Background(), requisition.Request{
		RequesterID: "chef-1",
		Sections:    []requisition.SectionRequest{sectionReq("s1")},
		Additions:   []requisition.AdditionalItem{{ProductID: "p7", Extra: d("2")}},
	})
	require.NoError(t, err)

	assert.Zero(t, mem.Calls.RecipeLines, "no recipe, no recipe lookup")
	doc := result.Documents[0]
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "3", doc.Lines[0].Quantity.String(), "2*30/20")
}

func TestGenerate_UnknownAdditionProduct_WarnsAndContinues(t *testing.T) {
	// GIVEN: An addition for a product the unit source doesn't know
	// WHEN: Generating
	// THEN: The run succeeds, the addition is dropped, a warning is recorded

	engine, mem := newTestEngine(t)
	seedStew(mem)
	mem.SetEnrollment("s1", 20)

	result, err := engine.Generate(context.Background(), requisition.Request{
		RequesterID: "chef-1",
		RecipeID:    "recipe-1",
		Sections:    []requisition.SectionRequest{sectionReq("s1")},
		Additions: []requisition.AdditionalItem{
			{ProductID: "p-bogus", Extra: d("5")},
			{ProductID: "p1", Extra: d("2")},
		},
	})
	require.NoError(t, err)

	doc := result.Documents[0]
	assert.Len(t, doc.Lines, 2, "bogus addition contributes no line")
	assert.Equal(t, "12", lineFor(t, doc, "p1").Quantity.String(), "good addition still merged")
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "p-bogus")
}

func TestGenerate_UnknownExclusionID_WarnsAndContinues(t *testing.T) {
	// GIVEN: An exclusion id matching no recipe line
	// WHEN: Generating
	// THEN: The run succeeds with a warning; matching exclusions still apply

	engine, mem := newTestEngine(t)
	seedStew(mem)
	mem.SetEnrollment("s1", 20)

	result, err := engine.Generate(context.Background(), requisition.Request{
		RequesterID:     "chef-1",
		RecipeID:        "recipe-1",
		Sections:        []requisition.SectionRequest{sectionReq("s1")},
		ExcludedLineIDs: []requisition.RecipeLineID{"rl-2", "rl-missing"},
	})
	require.NoError(t, err)

	doc := result.Documents[0]
	require.Len(t, doc.Lines, 1, "rl-2 excluded")
	assert.Equal(t, requisition.ProductID("p1"), doc.Lines[0].ProductID)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "rl-missing")
}
