/*
handlers.go - HTTP API handlers for the requisition system

PURPOSE:
  Exposes the requisition engine and its catalog via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain
  logic.

ENDPOINTS:
  Requisitions:
    POST   /api/requisitions/generate  Generate per-section documents
    GET    /api/requisitions           List documents (?section_id=)
    GET    /api/requisitions/{id}      Get one document with lines

  Catalog:
    GET    /api/products               List products
    POST   /api/products               Create/update product
    GET    /api/recipes                List recipes
    POST   /api/recipes                Create/replace recipe with lines
    GET    /api/recipes/{id}           Get recipe with lines
    GET    /api/sections               List sections
    POST   /api/sections               Create/update section

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario
    POST   /api/reset                  Clear all data (dev only)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors (including failed batch persists)

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/culina/requisition-engine/requisition"
	"github.com/culina/requisition-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *requisition.Generator

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store. The store
// serves as all four engine collaborators.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:  store,
		Engine: requisition.NewGenerator(store, store, store, store),
	}
}

// =============================================================================
// REQUISITION HANDLERS
// =============================================================================

// GenerateRequisitions runs the engine: one document per requested
// section, persisted atomically.
func (h *Handler) GenerateRequisitions(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sections := make([]requisition.SectionRequest, len(req.Sections))
	for i, s := range req.Sections {
		date, err := parseDate(s.RequestedDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid requested_date format (use YYYY-MM-DD)", err)
			return
		}
		sections[i] = requisition.SectionRequest{
			SectionID:     requisition.SectionID(s.SectionID),
			RequestedDate: date,
		}
	}

	excluded := make([]requisition.RecipeLineID, len(req.ExcludedRecipeLineIDs))
	for i, id := range req.ExcludedRecipeLineIDs {
		excluded[i] = requisition.RecipeLineID(id)
	}

	additions := make([]requisition.AdditionalItem, len(req.AdditionalItems))
	for i, a := range req.AdditionalItems {
		additions[i] = requisition.AdditionalItem{
			ProductID: requisition.ProductID(a.ProductID),
			Extra:     a.ExtraQuantity,
		}
	}

	result, err := h.Engine.Generate(r.Context(), requisition.Request{
		RequesterID:     req.RequesterID,
		Sections:        sections,
		RecipeID:        requisition.RecipeID(req.RecipeID),
		ExcludedLineIDs: excluded,
		Additions:       additions,
		Notes:           req.Notes,
	})
	if err != nil {
		if requisition.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Invalid generation request", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to generate requisitions", err)
		return
	}

	dtos := make([]RequisitionDTO, len(result.Documents))
	for i, view := range result.Documents {
		dtos[i] = requisitionDTO(view)
	}
	writeJSON(w, http.StatusCreated, GenerateResponse{Documents: dtos, Warnings: result.Warnings})
}

// ListRequisitions returns generated documents, optionally by section.
func (h *Handler) ListRequisitions(w http.ResponseWriter, r *http.Request) {
	sectionID := requisition.SectionID(r.URL.Query().Get("section_id"))

	docs, err := h.Store.ListRequisitions(r.Context(), sectionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requisitions", err)
		return
	}

	dtos := make([]RequisitionDTO, len(docs))
	for i, doc := range docs {
		dtos[i] = documentDTO(doc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRequisition returns one document with its lines.
func (h *Handler) GetRequisition(w http.ResponseWriter, r *http.Request) {
	id := requisition.DocumentID(chi.URLParam(r, "id"))

	doc, err := h.Store.GetRequisition(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get requisition", err)
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "Requisition not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, documentDTO(*doc))
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns all catalog products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = ProductDTO{ID: string(p.ID), Name: p.Name, Unit: string(p.Unit), Active: p.Active}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProduct creates or updates a catalog product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Unit == "" {
		writeError(w, http.StatusBadRequest, "id and unit are required", nil)
		return
	}

	p := sqlite.Product{
		ID:     requisition.ProductID(req.ID),
		Name:   req.Name,
		Unit:   requisition.Unit(req.Unit),
		Active: req.Active,
	}
	if err := h.Store.SaveProduct(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save product", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// RECIPE HANDLERS
// =============================================================================

// ListRecipes returns all recipe headers.
func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.Store.ListRecipes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recipes", err)
		return
	}

	dtos := make([]RecipeDTO, len(recipes))
	for i, rec := range recipes {
		dtos[i] = RecipeDTO{ID: string(rec.ID), Name: rec.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRecipe returns a recipe with all of its lines.
func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id := requisition.RecipeID(chi.URLParam(r, "id"))

	rec, err := h.Store.GetRecipe(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get recipe", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Recipe not found", nil)
		return
	}

	dto := RecipeDTO{ID: string(rec.ID), Name: rec.Name}
	for _, line := range rec.Lines {
		dto.Lines = append(dto.Lines, RecipeLineDTO{
			ID:           string(line.ID),
			ProductID:    string(line.ProductID),
			BaseQuantity: line.BaseQuantity,
			Position:     line.Position,
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// CreateRecipe creates or replaces a recipe and its lines.
func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req RecipeDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}

	rec := sqlite.Recipe{ID: requisition.RecipeID(req.ID), Name: req.Name}
	for _, line := range req.Lines {
		rec.Lines = append(rec.Lines, sqlite.RecipeLineRecord{
			ID:           requisition.RecipeLineID(line.ID),
			ProductID:    requisition.ProductID(line.ProductID),
			BaseQuantity: line.BaseQuantity,
			Position:     line.Position,
		})
	}
	if err := h.Store.SaveRecipe(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save recipe", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// SECTION HANDLERS
// =============================================================================

// ListSections returns all class sections.
func (h *Handler) ListSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.Store.ListSections(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sections", err)
		return
	}

	dtos := make([]SectionDTO, len(sections))
	for i, sec := range sections {
		dtos[i] = SectionDTO{ID: string(sec.ID), Name: sec.Name, Enrollment: sec.Enrollment}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSection creates or updates a class section.
func (h *Handler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req SectionDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}
	if req.Enrollment < 0 {
		writeError(w, http.StatusBadRequest, "enrollment must not be negative", nil)
		return
	}

	sec := sqlite.Section{
		ID:         requisition.SectionID(req.ID),
		Name:       req.Name,
		Enrollment: req.Enrollment,
	}
	if err := h.Store.SaveSection(r.Context(), sec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save section", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ResetDatabase clears all data (dev only).
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// ErrorResponse is the JSON shape of every error reply.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}
