package halserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// SimpleEntity is a row of simple_entities. RelatedID is 0 when unset.
type SimpleEntity struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	RelatedID int64  `json:"-"`
}

// Parent is a row of parents.
type Parent struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Child is a row of children.
type Child struct {
	ID       int64  `json:"id"`
	ParentID int64  `json:"-"`
	Name     string `json:"name"`
	Position int    `json:"-"`
}

// Store persists the fixture entities in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path. ":memory:" is allowed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS simple_entities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		related_id INTEGER REFERENCES simple_entities(id)
	);

	CREATE TABLE IF NOT EXISTS parents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS children (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parent_id INTEGER NOT NULL REFERENCES parents(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_children_parent ON children(parent_id, position);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSimpleEntity inserts an entity; relatedID 0 leaves the relation unset.
func (s *Store) CreateSimpleEntity(ctx context.Context, name string, relatedID int64) (SimpleEntity, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO simple_entities (name, related_id) VALUES (?, ?)`, name, nullID(relatedID))
	if err != nil {
		return SimpleEntity{}, fmt.Errorf("failed to insert simple entity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return SimpleEntity{}, err
	}
	return SimpleEntity{ID: id, Name: name, RelatedID: relatedID}, nil
}

// SetRelated points entity id at relatedID.
func (s *Store) SetRelated(ctx context.Context, id, relatedID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE simple_entities SET related_id = ? WHERE id = ?`, nullID(relatedID), id)
	if err != nil {
		return fmt.Errorf("failed to update simple entity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SimpleEntity loads one entity.
func (s *Store) SimpleEntity(ctx context.Context, id int64) (SimpleEntity, error) {
	var (
		e       SimpleEntity
		related sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, related_id FROM simple_entities WHERE id = ?`, id).Scan(&e.ID, &e.Name, &related)
	if errors.Is(err, sql.ErrNoRows) {
		return SimpleEntity{}, ErrNotFound
	}
	if err != nil {
		return SimpleEntity{}, fmt.Errorf("failed to query simple entity: %w", err)
	}
	if related.Valid {
		e.RelatedID = related.Int64
	}
	return e, nil
}

// CreateParent inserts a parent and its children in order.
func (s *Store) CreateParent(ctx context.Context, name string, children ...string) (Parent, []Child, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Parent{}, nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO parents (name) VALUES (?)`, name)
	if err != nil {
		return Parent{}, nil, fmt.Errorf("failed to insert parent: %w", err)
	}
	pid, err := res.LastInsertId()
	if err != nil {
		return Parent{}, nil, err
	}
	out := make([]Child, 0, len(children))
	for i, cn := range children {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO children (parent_id, name, position) VALUES (?, ?, ?)`, pid, cn, i)
		if err != nil {
			return Parent{}, nil, fmt.Errorf("failed to insert child: %w", err)
		}
		cid, err := res.LastInsertId()
		if err != nil {
			return Parent{}, nil, err
		}
		out = append(out, Child{ID: cid, ParentID: pid, Name: cn, Position: i})
	}
	if err := tx.Commit(); err != nil {
		return Parent{}, nil, err
	}
	return Parent{ID: pid, Name: name}, out, nil
}

// Parent loads one parent.
func (s *Store) Parent(ctx context.Context, id int64) (Parent, error) {
	var p Parent
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM parents WHERE id = ?`, id).Scan(&p.ID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Parent{}, ErrNotFound
	}
	if err != nil {
		return Parent{}, fmt.Errorf("failed to query parent: %w", err)
	}
	return p, nil
}

// Children returns the children of a parent by position.
func (s *Store) Children(ctx context.Context, parentID int64) ([]Child, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, name, position FROM children WHERE parent_id = ? ORDER BY position, id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var out []Child
	for rows.Next() {
		var c Child
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Name, &c.Position); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating children: %w", err)
	}
	return out, nil
}

// Child loads one child.
func (s *Store) Child(ctx context.Context, id int64) (Child, error) {
	var c Child
	err := s.db.QueryRowContext(ctx,
		`SELECT id, parent_id, name, position FROM children WHERE id = ?`, id).Scan(&c.ID, &c.ParentID, &c.Name, &c.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return Child{}, ErrNotFound
	}
	if err != nil {
		return Child{}, fmt.Errorf("failed to query child: %w", err)
	}
	return c, nil
}

// Seed inserts the demo data set: two related simple entities and a parent
// with three children.
func (s *Store) Seed(ctx context.Context) error {
	a, err := s.CreateSimpleEntity(ctx, "first", 0)
	if err != nil {
		return err
	}
	b, err := s.CreateSimpleEntity(ctx, "second", a.ID)
	if err != nil {
		return err
	}
	if err := s.SetRelated(ctx, a.ID, b.ID); err != nil {
		return err
	}
	_, _, err = s.CreateParent(ctx, "family", "alpha", "beta", "gamma")
	return err
}

func nullID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}
