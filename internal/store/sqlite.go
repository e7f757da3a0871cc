package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pbaille/lexigraph/internal/domain"
)

//go:embed schema.sql
var schema string

// driverName is go-sqlite3 with a Unicode-aware fold() SQL function.
// The built-in lower() only folds ASCII, so "Économie" would never match
// "économie".
const driverName = "sqlite3_lexigraph"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", fold, true)
		},
	})
}

func fold(s string) string {
	return strings.ToLower(s)
}

// Store is the SQLite-backed persistence collaborator for the concept
// graph, flashcards and reviews
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the database at dbPath and applies the schema
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer; one connection keeps check-then-insert
	// sequences from interleaving with "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func pairKey(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

const nodeColumns = "id, type, title, description, content, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*domain.ConceptNode, error) {
	var n domain.ConceptNode
	if err := row.Scan(&n.ID, &n.Type, &n.Title, &n.Description, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) queryNode(ctx context.Context, op, query string, args ...any) (*domain.ConceptNode, error) {
	n, err := scanNode(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConceptNotFound
	}
	if err != nil {
		return nil, unavailable(op, err)
	}
	return n, nil
}

// FindNodeByText returns the first node whose title, then description,
// contains query (case-insensitive)
func (s *Store) FindNodeByText(ctx context.Context, query string) (*domain.ConceptNode, error) {
	q := fold(strings.TrimSpace(query))
	if q == "" {
		return nil, domain.ErrConceptNotFound
	}

	n, err := s.queryNode(ctx, "find node by title",
		"SELECT "+nodeColumns+" FROM nodes WHERE instr(fold(title), ?) > 0 ORDER BY rowid LIMIT 1", q)
	if !errors.Is(err, domain.ErrConceptNotFound) {
		return n, err
	}

	return s.queryNode(ctx, "find node by description",
		"SELECT "+nodeColumns+" FROM nodes WHERE instr(fold(description), ?) > 0 ORDER BY rowid LIMIT 1", q)
}

// GetNode retrieves a node by ID
func (s *Store) GetNode(ctx context.Context, id string) (*domain.ConceptNode, error) {
	return s.queryNode(ctx, "get node", "SELECT "+nodeColumns+" FROM nodes WHERE id = ?", id)
}

// GetNodeByTitle retrieves a node by exact (lowercased) title
func (s *Store) GetNodeByTitle(ctx context.Context, title string) (*domain.ConceptNode, error) {
	return s.queryNode(ctx, "get node by title",
		"SELECT "+nodeColumns+" FROM nodes WHERE title = ?", normalizeTitle(title))
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// CreateNode inserts a new node. Titles are stored lowercased and are unique.
func (s *Store) CreateNode(ctx context.Context, nodeType, title, description, content string) (*domain.ConceptNode, error) {
	title = normalizeTitle(title)
	if title == "" {
		return nil, fmt.Errorf("create node: %w: empty title", domain.ErrInvalidParameter)
	}

	now := s.now()
	n := &domain.ConceptNode{
		ID:          uuid.New().String(),
		Type:        nodeType,
		Title:       title,
		Description: description,
		Content:     content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO nodes ("+nodeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		n.ID, n.Type, n.Title, n.Description, n.Content, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create node %q: %w", title, errDuplicateNode)
		}
		return nil, unavailable("insert node", err)
	}

	return n, nil
}

var errDuplicateNode = errors.New("duplicate node title")

// GetOrCreateNode finds a node by title or creates it. The boolean
// reports whether the node was created by this call.
func (s *Store) GetOrCreateNode(ctx context.Context, nodeType, title, description, content string) (*domain.ConceptNode, bool, error) {
	n, err := s.GetNodeByTitle(ctx, title)
	if err == nil {
		return n, false, nil
	}
	if !errors.Is(err, domain.ErrConceptNotFound) {
		return nil, false, err
	}

	n, err = s.CreateNode(ctx, nodeType, title, description, content)
	if errors.Is(err, errDuplicateNode) {
		// Lost a race with a concurrent creator
		n, err = s.GetNodeByTitle(ctx, title)
		return n, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return n, true, nil
}

// UpdateNodeDescription replaces a node's description
func (s *Store) UpdateNodeDescription(ctx context.Context, id, description string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE nodes SET description = ?, updated_at = ? WHERE id = ?",
		description, s.now(), id,
	)
	if err != nil {
		return unavailable("update node description", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrConceptNotFound
	}
	return nil
}

// ListNodes returns nodes, optionally filtered by type, in creation order
func (s *Store) ListNodes(ctx context.Context, nodeType string, limit int) ([]domain.ConceptNode, error) {
	query := "SELECT " + nodeColumns + " FROM nodes"
	var args []any
	if nodeType != "" {
		query += " WHERE type = ?"
		args = append(args, nodeType)
	}
	query += " ORDER BY rowid LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list nodes", err)
	}
	defer rows.Close()

	var nodes []domain.ConceptNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, unavailable("scan node", err)
		}
		nodes = append(nodes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list nodes", err)
	}

	return nodes, nil
}

const edgeColumns = "id, source_id, target_id, type, strength, metadata, created_at, updated_at"

func scanEdge(row rowScanner) (*domain.ConceptEdge, error) {
	var (
		e    domain.ConceptEdge
		meta string
	)
	if err := row.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Type, &e.Strength, &meta, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode edge metadata: %w", err)
		}
	}
	return &e, nil
}

func (s *Store) queryEdges(ctx context.Context, op, query string, args ...any) ([]domain.ConceptEdge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	var edges []domain.ConceptEdge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, unavailable("scan edge", err)
		}
		edges = append(edges, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}

	return edges, nil
}

// CreateEdge links source to target. It fails with domain.ErrDuplicateEdge
// when any edge already joins the two nodes, in either direction.
func (s *Store) CreateEdge(ctx context.Context, sourceID, targetID, relType string, strength float64, metadata map[string]string) (*domain.ConceptEdge, error) {
	if sourceID == targetID {
		return nil, fmt.Errorf("create edge: %w: self loop on %s", domain.ErrInvalidParameter, sourceID)
	}
	if strength < 0 || strength > 1 {
		return nil, fmt.Errorf("create edge: %w: strength %.2f outside [0,1]", domain.ErrInvalidParameter, strength)
	}

	meta := "{}"
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("encode edge metadata: %w", err)
		}
		meta = string(b)
	}

	now := s.now()
	e := &domain.ConceptEdge{
		ID:        uuid.New().String(),
		SourceID:  sourceID,
		TargetID:  targetID,
		Type:      relType,
		Strength:  strength,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	lo, hi := pairKey(sourceID, targetID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO edges (id, source_id, target_id, pair_lo, pair_hi, type, strength, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SourceID, e.TargetID, lo, hi, e.Type, e.Strength, meta, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateEdge
		}
		return nil, unavailable("insert edge", err)
	}

	return e, nil
}

// FindEdgeBetween returns the edge joining a and b in either direction
func (s *Store) FindEdgeBetween(ctx context.Context, a, b string) (*domain.ConceptEdge, error) {
	lo, hi := pairKey(a, b)
	e, err := scanEdge(s.db.QueryRowContext(ctx,
		"SELECT "+edgeColumns+" FROM edges WHERE pair_lo = ? AND pair_hi = ?", lo, hi))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEdgeNotFound
	}
	if err != nil {
		return nil, unavailable("find edge", err)
	}
	return e, nil
}

// EdgesTouching returns every edge with nodeID as source or target,
// strongest first
func (s *Store) EdgesTouching(ctx context.Context, nodeID string) ([]domain.ConceptEdge, error) {
	return s.queryEdges(ctx, "edges touching",
		"SELECT "+edgeColumns+" FROM edges WHERE source_id = ? OR target_id = ? ORDER BY strength DESC, rowid",
		nodeID, nodeID)
}

// EdgesByType returns every edge of the given relation type
func (s *Store) EdgesByType(ctx context.Context, relType string) ([]domain.ConceptEdge, error) {
	return s.queryEdges(ctx, "edges by type",
		"SELECT "+edgeColumns+" FROM edges WHERE type = ? ORDER BY strength DESC, rowid", relType)
}

// Reinforce raises an edge's strength by delta, capped at 1.0. The update
// is a single statement so concurrent reinforcements do not lose writes.
func (s *Store) Reinforce(ctx context.Context, edgeID string, delta float64) error {
	if delta < 0 {
		return fmt.Errorf("reinforce: %w: negative delta %.2f", domain.ErrInvalidParameter, delta)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE edges SET strength = MIN(1.0, strength + ?), updated_at = ? WHERE id = ?",
		delta, s.now(), edgeID,
	)
	if err != nil {
		return unavailable("reinforce edge", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrEdgeNotFound
	}
	return nil
}
