/*
Package sqlite provides a SQLite-backed implementation of the engine's
collaborator interfaces plus the catalog it reads from.

PURPOSE:
  Implements requisition.RecipeSource, requisition.EnrollmentSource,
  requisition.UnitSource and requisition.DocumentStore using SQLite.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  products:          Product catalog (unit of measure, active flag)
  recipes:           Recipe headers
  recipe_lines:      One ingredient per row, base quantities at
                     reference-enrollment scale
  sections:          Class sections with current enrollment
  requisitions:      Generated documents (store-assigned ids)
  requisition_lines: Computed per-product quantities, owned by their
                     document

BATCH WRITE SEMANTICS:
  SaveBatch wraps all inserts in one transaction. Any constraint
  violation rolls back the whole batch; no partial documents are ever
  visible. A UNIQUE(requisition_id, product_id) index backs the
  one-line-per-product invariant at the storage layer.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't
  block the single writer.

USAGE:
  store, err := sqlite.New("./data/requisitions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := requisition.NewGenerator(store, store, store, store)

SEE ALSO:
  - requisition/sources.go: Interface definitions
  - requisition/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/culina/requisition-engine/requisition"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Product catalog
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		unit TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_active
		ON products(active);

	-- Recipes
	CREATE TABLE IF NOT EXISTS recipes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Recipe lines (base quantities calibrated for reference enrollment)
	CREATE TABLE IF NOT EXISTS recipe_lines (
		id TEXT PRIMARY KEY,
		recipe_id TEXT NOT NULL REFERENCES recipes(id),
		product_id TEXT NOT NULL REFERENCES products(id),
		base_quantity TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_recipe_lines_recipe
		ON recipe_lines(recipe_id, position);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_recipe_lines_recipe_product
		ON recipe_lines(recipe_id, product_id);

	-- Class sections with current enrollment
	CREATE TABLE IF NOT EXISTS sections (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		enrollment INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Generated requisition documents (ids assigned here)
	CREATE TABLE IF NOT EXISTS requisitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		requester_id TEXT NOT NULL,
		section_id TEXT NOT NULL,
		requested_date TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requisitions_section
		ON requisitions(section_id);
	CREATE INDEX IF NOT EXISTS idx_requisitions_status
		ON requisitions(status);

	-- Document lines, composition: no lifecycle outside their document
	CREATE TABLE IF NOT EXISTS requisition_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		requisition_id INTEGER NOT NULL REFERENCES requisitions(id),
		product_id TEXT NOT NULL,
		quantity TEXT NOT NULL,
		note TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_requisition_lines_doc
		ON requisition_lines(requisition_id);

	-- CRITICAL: a document holds at most one line per product
	CREATE UNIQUE INDEX IF NOT EXISTS idx_requisition_lines_doc_product
		ON requisition_lines(requisition_id, product_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECIPE SOURCE (requisition.RecipeSource interface)
// =============================================================================

// RecipeLines returns the recipe's lines in recipe order, restricted to
// active products. The product's unit is joined in so the engine never
// needs a second lookup for recipe-covered products.
func (s *Store) RecipeLines(ctx context.Context, recipeID requisition.RecipeID) ([]requisition.RecipeLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT rl.id, rl.product_id, rl.base_quantity, p.unit
		FROM recipe_lines rl
		JOIN products p ON p.id = rl.product_id
		WHERE rl.recipe_id = ? AND p.active
		ORDER BY rl.position ASC, rl.id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipe lines: %w", err)
	}
	defer rows.Close()

	var lines []requisition.RecipeLine
	for rows.Next() {
		var (
			line     requisition.RecipeLine
			quantity string
		)
		if err := rows.Scan(&line.ID, &line.ProductID, &quantity, &line.Unit); err != nil {
			return nil, fmt.Errorf("failed to scan recipe line: %w", err)
		}
		line.BaseQuantity = mustDecimal(quantity)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// =============================================================================
// ENROLLMENT SOURCE (requisition.EnrollmentSource interface)
// =============================================================================

// Enrollment bulk-resolves enrollment counts. Unknown sections are
// simply absent from the result.
func (s *Store) Enrollment(ctx context.Context, sectionIDs []requisition.SectionID) (map[requisition.SectionID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[requisition.SectionID]int, len(sectionIDs))
	if len(sectionIDs) == 0 {
		return result, nil
	}

	args := make([]any, len(sectionIDs))
	for i, id := range sectionIDs {
		args[i] = id
	}
	query := "SELECT id, enrollment FROM sections WHERE id IN (" + placeholders(len(args)) + ")"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollment: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    requisition.SectionID
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		result[id] = count
	}
	return result, rows.Err()
}

// =============================================================================
// UNIT SOURCE (requisition.UnitSource interface)
// =============================================================================

// Units bulk-resolves units of measure for active products. Unknown and
// inactive products are absent from the result.
func (s *Store) Units(ctx context.Context, productIDs []requisition.ProductID) (map[requisition.ProductID]requisition.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[requisition.ProductID]requisition.Unit, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	args := make([]any, len(productIDs))
	for i, id := range productIDs {
		args[i] = id
	}
	query := "SELECT id, unit FROM products WHERE active AND id IN (" + placeholders(len(args)) + ")"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   requisition.ProductID
			unit requisition.Unit
		)
		if err := rows.Scan(&id, &unit); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		result[id] = unit
	}
	return result, rows.Err()
}

// =============================================================================
// DOCUMENT STORE (requisition.DocumentStore interface)
// =============================================================================

// SaveBatch persists all documents in a single transaction and returns
// them with assigned ids. Any failure rolls back the whole batch.
func (s *Store) SaveBatch(ctx context.Context, docs []requisition.Document) ([]requisition.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	saved := make([]requisition.Document, len(docs))
	for i, doc := range docs {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO requisitions (requester_id, section_id, requested_date, status, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			doc.RequesterID,
			doc.SectionID,
			doc.RequestedDate.Format(time.RFC3339),
			doc.Status,
			doc.Notes,
			now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert requisition: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read requisition id: %w", err)
		}
		doc.ID = requisition.DocumentID(strconv.FormatInt(id, 10))

		for _, line := range doc.Lines {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO requisition_lines (requisition_id, product_id, quantity, note)
				 VALUES (?, ?, ?, ?)`,
				id, line.ProductID, line.Quantity.String(), line.Note,
			); err != nil {
				return nil, fmt.Errorf("failed to insert requisition line: %w", err)
			}
		}
		saved[i] = doc
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit requisition batch: %w", err)
	}
	return saved, nil
}

// GetRequisition retrieves a document with its lines. Returns nil when
// the id is unknown.
func (s *Store) GetRequisition(ctx context.Context, id requisition.DocumentID) (*requisition.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		doc           requisition.Document
		rowID         int64
		requestedDate string
		notes         sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, requester_id, section_id, requested_date, status, notes FROM requisitions WHERE id = ?",
		id,
	).Scan(&rowID, &doc.RequesterID, &doc.SectionID, &requestedDate, &doc.Status, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	doc.ID = requisition.DocumentID(strconv.FormatInt(rowID, 10))
	doc.RequestedDate, _ = time.Parse(time.RFC3339, requestedDate)
	doc.Notes = notes.String

	lines, err := s.queryLines(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Lines = lines
	return &doc, nil
}

// ListRequisitions returns documents, optionally filtered by section,
// newest first.
func (s *Store) ListRequisitions(ctx context.Context, sectionID requisition.SectionID) ([]requisition.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, requester_id, section_id, requested_date, status, notes FROM requisitions"
	var args []any
	if sectionID != "" {
		query += " WHERE section_id = ?"
		args = append(args, sectionID)
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []requisition.Document
	for rows.Next() {
		var (
			doc           requisition.Document
			rowID         int64
			requestedDate string
			notes         sql.NullString
		)
		if err := rows.Scan(&rowID, &doc.RequesterID, &doc.SectionID, &requestedDate, &doc.Status, &notes); err != nil {
			return nil, err
		}
		doc.ID = requisition.DocumentID(strconv.FormatInt(rowID, 10))
		doc.RequestedDate, _ = time.Parse(time.RFC3339, requestedDate)
		doc.Notes = notes.String
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range docs {
		lines, err := s.queryLines(ctx, docs[i].ID)
		if err != nil {
			return nil, err
		}
		docs[i].Lines = lines
	}
	return docs, nil
}

func (s *Store) queryLines(ctx context.Context, docID requisition.DocumentID) ([]requisition.Line, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT product_id, quantity, note FROM requisition_lines WHERE requisition_id = ? ORDER BY id ASC",
		docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []requisition.Line
	for rows.Next() {
		var (
			line     requisition.Line
			quantity string
			note     sql.NullString
		)
		if err := rows.Scan(&line.ProductID, &quantity, &note); err != nil {
			return nil, err
		}
		line.Quantity = mustDecimal(quantity)
		line.Note = note.String
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// =============================================================================
// PRODUCT CATALOG
// =============================================================================

// Product is a catalog entry.
type Product struct {
	ID     requisition.ProductID
	Name   string
	Unit   requisition.Unit
	Active bool
}

// SaveProduct inserts or updates a product.
func (s *Store) SaveProduct(ctx context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO products (id, name, unit, active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			unit = excluded.unit,
			active = excluded.active
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Unit, p.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetProduct retrieves a product by ID. Returns nil when unknown.
func (s *Store) GetProduct(ctx context.Context, id requisition.ProductID) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p Product
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, unit, active FROM products WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &p.Unit, &p.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns all products ordered by name.
func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, unit, active FROM products ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Unit, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// =============================================================================
// RECIPE CATALOG
// =============================================================================

// Recipe is a recipe header with its line records.
type Recipe struct {
	ID    requisition.RecipeID
	Name  string
	Lines []RecipeLineRecord
}

// RecipeLineRecord is a stored recipe line.
type RecipeLineRecord struct {
	ID           requisition.RecipeLineID
	ProductID    requisition.ProductID
	BaseQuantity decimal.Decimal
	Position     int
}

// SaveRecipe inserts or replaces a recipe and all of its lines.
func (s *Store) SaveRecipe(ctx context.Context, r Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO recipes (id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		r.ID, r.Name, now,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM recipe_lines WHERE recipe_id = ?", r.ID); err != nil {
		return err
	}
	for _, line := range r.Lines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_lines (id, recipe_id, product_id, base_quantity, position)
			 VALUES (?, ?, ?, ?, ?)`,
			line.ID, r.ID, line.ProductID, line.BaseQuantity.String(), line.Position,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetRecipe retrieves a recipe with all of its lines, including lines
// whose product is inactive. Returns nil when unknown.
func (s *Store) GetRecipe(ctx context.Context, id requisition.RecipeID) (*Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r Recipe
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM recipes WHERE id = ?", id,
	).Scan(&r.ID, &r.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, base_quantity, position FROM recipe_lines
		 WHERE recipe_id = ? ORDER BY position ASC, id ASC`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line     RecipeLineRecord
			quantity string
		)
		if err := rows.Scan(&line.ID, &line.ProductID, &quantity, &line.Position); err != nil {
			return nil, err
		}
		line.BaseQuantity = mustDecimal(quantity)
		r.Lines = append(r.Lines, line)
	}
	return &r, rows.Err()
}

// ListRecipes returns all recipe headers ordered by name.
func (s *Store) ListRecipes(ctx context.Context) ([]Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM recipes ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		var r Recipe
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}

// =============================================================================
// SECTION CATALOG
// =============================================================================

// Section is a class section record.
type Section struct {
	ID         requisition.SectionID
	Name       string
	Enrollment int
}

// SaveSection inserts or updates a section.
func (s *Store) SaveSection(ctx context.Context, sec Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO sections (id, name, enrollment, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			enrollment = excluded.enrollment
	`

	_, err := s.db.ExecContext(ctx, query,
		sec.ID, sec.Name, sec.Enrollment,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListSections returns all sections ordered by id.
func (s *Store) ListSections(ctx context.Context) ([]Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, enrollment FROM sections ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []Section
	for rows.Next() {
		var sec Section
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.Enrollment); err != nil {
			return nil, err
		}
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"requisition_lines", "requisitions", "recipe_lines", "recipes", "sections", "products"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
