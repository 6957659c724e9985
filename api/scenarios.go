/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with a
	realistic teaching-kitchen catalog: products with units, a recipe at
	reference-enrollment scale, and class sections with enrollment.

AVAILABLE SCENARIOS:

	basic-kitchen:  One recipe, three sections at different enrollments
	bakery:         Discrete-unit heavy recipe (UNIDAD rounding on show)

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create products (unit of measure, active flag)
 3. Create a recipe with base quantities
 4. Create sections with enrollment counts

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "basic-kitchen"}

NOTE:

	Scenarios reset the database. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: Catalog handlers
  - store/sqlite: Catalog persistence
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/culina/requisition-engine/requisition"
	"github.com/culina/requisition-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "basic-kitchen",
		Name:        "Basic Kitchen",
		Description: "One stew recipe, three sections at different enrollments",
	},
	{
		ID:          "bakery",
		Name:        "Bakery",
		Description: "Discrete-unit heavy recipe showing UNIDAD ceiling rounding",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and loads the selected scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "basic-kitchen":
		err = loadBasicKitchenScenario(ctx, h.Store)
	case "bakery":
		err = loadBakeryScenario(ctx, h.Store)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario_id": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadBasicKitchenScenario(ctx context.Context, store *sqlite.Store) error {
	products := []sqlite.Product{
		{ID: "prod-rice", Name: "Rice", Unit: "KG", Active: true},
		{ID: "prod-chicken", Name: "Chicken", Unit: "KG", Active: true},
		{ID: "prod-oil", Name: "Vegetable Oil", Unit: "L", Active: true},
		{ID: "prod-eggs", Name: "Eggs", Unit: requisition.UnitCount, Active: true},
		{ID: "prod-saffron", Name: "Saffron", Unit: "KG", Active: false},
	}
	for _, p := range products {
		if err := store.SaveProduct(ctx, p); err != nil {
			return err
		}
	}

	recipe := sqlite.Recipe{
		ID:   "recipe-stew",
		Name: "Chicken Stew",
		Lines: []sqlite.RecipeLineRecord{
			{ID: "rl-stew-1", ProductID: "prod-rice", BaseQuantity: decimal.RequireFromString("2.5"), Position: 1},
			{ID: "rl-stew-2", ProductID: "prod-chicken", BaseQuantity: decimal.RequireFromString("4"), Position: 2},
			{ID: "rl-stew-3", ProductID: "prod-oil", BaseQuantity: decimal.RequireFromString("0.5"), Position: 3},
			{ID: "rl-stew-4", ProductID: "prod-eggs", BaseQuantity: decimal.RequireFromString("10"), Position: 4},
			// Inactive product: filtered out of generation until reactivated
			{ID: "rl-stew-5", ProductID: "prod-saffron", BaseQuantity: decimal.RequireFromString("0.002"), Position: 5},
		},
	}
	if err := store.SaveRecipe(ctx, recipe); err != nil {
		return err
	}

	sections := []sqlite.Section{
		{ID: "sec-a", Name: "Culinary Basics A", Enrollment: 20},
		{ID: "sec-b", Name: "Culinary Basics B", Enrollment: 35},
		{ID: "sec-c", Name: "Culinary Basics C (evening)", Enrollment: 12},
	}
	for _, sec := range sections {
		if err := store.SaveSection(ctx, sec); err != nil {
			return err
		}
	}
	return nil
}

func loadBakeryScenario(ctx context.Context, store *sqlite.Store) error {
	products := []sqlite.Product{
		{ID: "prod-flour", Name: "Wheat Flour", Unit: "KG", Active: true},
		{ID: "prod-butter", Name: "Butter", Unit: "KG", Active: true},
		{ID: "prod-yeast", Name: "Yeast Sachet", Unit: requisition.UnitCount, Active: true},
		{ID: "prod-trays", Name: "Baking Tray Liner", Unit: requisition.UnitCount, Active: true},
	}
	for _, p := range products {
		if err := store.SaveProduct(ctx, p); err != nil {
			return err
		}
	}

	recipe := sqlite.Recipe{
		ID:   "recipe-bread",
		Name: "Country Bread",
		Lines: []sqlite.RecipeLineRecord{
			{ID: "rl-bread-1", ProductID: "prod-flour", BaseQuantity: decimal.RequireFromString("5"), Position: 1},
			{ID: "rl-bread-2", ProductID: "prod-butter", BaseQuantity: decimal.RequireFromString("0.75"), Position: 2},
			{ID: "rl-bread-3", ProductID: "prod-yeast", BaseQuantity: decimal.RequireFromString("3"), Position: 3},
			{ID: "rl-bread-4", ProductID: "prod-trays", BaseQuantity: decimal.RequireFromString("6"), Position: 4},
		},
	}
	if err := store.SaveRecipe(ctx, recipe); err != nil {
		return err
	}

	// Odd enrollments so the UNIDAD ceiling is visible in demos
	sections := []sqlite.Section{
		{ID: "sec-bake-1", Name: "Bread Lab 1", Enrollment: 23},
		{ID: "sec-bake-2", Name: "Bread Lab 2", Enrollment: 9},
	}
	for _, sec := range sections {
		if err := store.SaveSection(ctx, sec); err != nil {
			return err
		}
	}
	return nil
}
