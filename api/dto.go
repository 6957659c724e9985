/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

QUANTITIES:
  Quantities travel as JSON strings ("1.250") so the 3-decimal rounding
  survives serialization exactly. decimal.Decimal accepts both numbers
  and strings on input.

SEE ALSO:
  - handlers.go: Uses these types
  - requisition/types.go: Domain types these project
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/culina/requisition-engine/requisition"
)

const dateLayout = "2006-01-02"

// =============================================================================
// GENERATION
// =============================================================================

// SectionRequestDTO names one section and its delivery date.
type SectionRequestDTO struct {
	SectionID     string `json:"section_id"`
	RequestedDate string `json:"requested_date"`
}

// AdditionalItemDTO is one ad-hoc product addition. Repeated product
// ids are additive.
type AdditionalItemDTO struct {
	ProductID     string          `json:"product_id"`
	ExtraQuantity decimal.Decimal `json:"extra_quantity"`
}

// GenerateRequest is the request body for requisition generation.
type GenerateRequest struct {
	RequesterID           string              `json:"requester_id"`
	RecipeID              string              `json:"recipe_id,omitempty"`
	Sections              []SectionRequestDTO `json:"sections"`
	ExcludedRecipeLineIDs []string            `json:"excluded_recipe_line_ids,omitempty"`
	AdditionalItems       []AdditionalItemDTO `json:"additional_items,omitempty"`
	Notes                 string              `json:"notes,omitempty"`
}

// LineDTO is one computed line of a generated document.
type LineDTO struct {
	ProductID string `json:"product_id"`
	Quantity  string `json:"quantity"`
	Note      string `json:"note,omitempty"`
}

// RequisitionDTO is a generated requisition document.
type RequisitionDTO struct {
	ID            string    `json:"id"`
	RequesterID   string    `json:"requester_id"`
	SectionID     string    `json:"section_id"`
	RequestedDate string    `json:"requested_date"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	Lines         []LineDTO `json:"lines"`
}

// GenerateResponse wraps the generated documents and any non-fatal
// warnings recorded during the run.
type GenerateResponse struct {
	Documents []RequisitionDTO `json:"documents"`
	Warnings  []string         `json:"warnings,omitempty"`
}

// =============================================================================
// CATALOG
// =============================================================================

// ProductDTO represents a catalog product.
type ProductDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Active bool   `json:"active"`
}

// RecipeLineDTO is one stored recipe line.
type RecipeLineDTO struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	BaseQuantity decimal.Decimal `json:"base_quantity"`
	Position     int             `json:"position"`
}

// RecipeDTO represents a recipe with its lines.
type RecipeDTO struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Lines []RecipeLineDTO `json:"lines,omitempty"`
}

// SectionDTO represents a class section.
type SectionDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Enrollment int    `json:"enrollment"`
}

// =============================================================================
// MAPPING HELPERS
// =============================================================================

func requisitionDTO(view requisition.DocumentView) RequisitionDTO {
	lines := make([]LineDTO, len(view.Lines))
	for i, l := range view.Lines {
		lines[i] = LineDTO{
			ProductID: string(l.ProductID),
			Quantity:  l.Quantity.String(),
			Note:      l.Note,
		}
	}
	return RequisitionDTO{
		ID:            string(view.ID),
		RequesterID:   view.RequesterID,
		SectionID:     string(view.SectionID),
		RequestedDate: view.RequestedDate.Format(dateLayout),
		Status:        string(view.Status),
		Notes:         view.Notes,
		Lines:         lines,
	}
}

func documentDTO(doc requisition.Document) RequisitionDTO {
	lines := make([]LineDTO, len(doc.Lines))
	for i, l := range doc.Lines {
		lines[i] = LineDTO{
			ProductID: string(l.ProductID),
			Quantity:  l.Quantity.String(),
			Note:      l.Note,
		}
	}
	return RequisitionDTO{
		ID:            string(doc.ID),
		RequesterID:   doc.RequesterID,
		SectionID:     string(doc.SectionID),
		RequestedDate: doc.RequestedDate.Format(dateLayout),
		Status:        string(doc.Status),
		Notes:         doc.Notes,
		Lines:         lines,
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
