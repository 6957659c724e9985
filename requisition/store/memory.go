// Package store provides in-memory implementations of the engine's
// collaborator interfaces, for testing and development. Every method
// counts its calls so tests can assert the read-once property.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/culina/requisition-engine/requisition"
)

// =============================================================================
// MEMORY CATALOG - RecipeSource, EnrollmentSource, UnitSource
// =============================================================================

// Memory holds catalog data (recipes, enrollment, product units) and
// persisted documents in process memory.
type Memory struct {
	mu         sync.RWMutex
	recipes    map[requisition.RecipeID][]requisition.RecipeLine
	enrollment map[requisition.SectionID]int
	units      map[requisition.ProductID]requisition.Unit
	documents  []requisition.Document
	nextID     int

	// Call counters, exported for test assertions.
	Calls CallCounts
}

// CallCounts tracks how many times each collaborator method was invoked.
type CallCounts struct {
	RecipeLines int
	Enrollment  int
	Units       int
	SaveBatch   int
}

func NewMemory() *Memory {
	return &Memory{
		recipes:    make(map[requisition.RecipeID][]requisition.RecipeLine),
		enrollment: make(map[requisition.SectionID]int),
		units:      make(map[requisition.ProductID]requisition.Unit),
		nextID:     1,
	}
}

// SetRecipe registers a recipe's active ingredient lines.
func (m *Memory) SetRecipe(id requisition.RecipeID, lines []requisition.RecipeLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipes[id] = lines
}

// SetEnrollment registers a section's current enrollment count.
func (m *Memory) SetEnrollment(id requisition.SectionID, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollment[id] = count
}

// SetUnit registers a product's unit of measure.
func (m *Memory) SetUnit(id requisition.ProductID, unit requisition.Unit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[id] = unit
}

func (m *Memory) RecipeLines(_ context.Context, recipeID requisition.RecipeID) ([]requisition.RecipeLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls.RecipeLines++

	lines := make([]requisition.RecipeLine, len(m.recipes[recipeID]))
	copy(lines, m.recipes[recipeID])
	return lines, nil
}

func (m *Memory) Enrollment(_ context.Context, sectionIDs []requisition.SectionID) (map[requisition.SectionID]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls.Enrollment++

	result := make(map[requisition.SectionID]int, len(sectionIDs))
	for _, id := range sectionIDs {
		if count, ok := m.enrollment[id]; ok {
			result[id] = count
		}
	}
	return result, nil
}

func (m *Memory) Units(_ context.Context, productIDs []requisition.ProductID) (map[requisition.ProductID]requisition.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls.Units++

	result := make(map[requisition.ProductID]requisition.Unit, len(productIDs))
	for _, id := range productIDs {
		if unit, ok := m.units[id]; ok {
			result[id] = unit
		}
	}
	return result, nil
}

// =============================================================================
// MEMORY DOCUMENT STORE
// =============================================================================

// SaveBatch persists all documents atomically and assigns sequential IDs.
func (m *Memory) SaveBatch(_ context.Context, docs []requisition.Document) ([]requisition.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls.SaveBatch++

	saved := make([]requisition.Document, len(docs))
	for i, doc := range docs {
		doc.ID = requisition.DocumentID(memoryID(m.nextID))
		m.nextID++
		saved[i] = doc
	}
	m.documents = append(m.documents, saved...)
	return saved, nil
}

// Documents returns a copy of everything persisted so far.
func (m *Memory) Documents() []requisition.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]requisition.Document, len(m.documents))
	copy(docs, m.documents)
	return docs
}

func memoryID(n int) string {
	// Zero-padded for stable lexical ordering in tests.
	return fmt.Sprintf("req-%04d", n)
}
