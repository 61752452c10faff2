package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/prism/internal/ir"
)

const mutationColumns = `id, target, type_name, property, scope, old_value, new_value, origin, depth, seq, decl_hash, engine_version`

// ReadAll returns every mutation with deterministic ordering.
// Results ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) for an empty journal.
func (j *Journal) ReadAll(ctx context.Context) ([]ir.Mutation, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+mutationColumns+`
		FROM mutations
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all mutations: %w", err)
	}
	defer rows.Close()

	return collectMutations(rows)
}

// ReadTarget returns all mutations for one target (an instance ID, or a
// type name for type-scoped writes), ordered by seq ASC, id ASC.
func (j *Journal) ReadTarget(ctx context.Context, target string) ([]ir.Mutation, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+mutationColumns+`
		FROM mutations
		WHERE target = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, target)
	if err != nil {
		return nil, fmt.Errorf("query target mutations: %w", err)
	}
	defer rows.Close()

	return collectMutations(rows)
}

// ReadProperty returns the mutation history of one property on one target,
// ordered by seq ASC, id ASC.
func (j *Journal) ReadProperty(ctx context.Context, target, property string) ([]ir.Mutation, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+mutationColumns+`
		FROM mutations
		WHERE target = ? AND property = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, target, property)
	if err != nil {
		return nil, fmt.Errorf("query property mutations: %w", err)
	}
	defer rows.Close()

	return collectMutations(rows)
}

// ReadMutation retrieves a single mutation by ID.
// Returns sql.ErrNoRows if not found.
func (j *Journal) ReadMutation(ctx context.Context, id string) (ir.Mutation, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+mutationColumns+`
		FROM mutations
		WHERE id = ?
	`, id)

	return scanMutationRow(row)
}

// ListTargets returns all distinct mutation targets.
// Results ordered alphabetically.
func (j *Journal) ListTargets(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT DISTINCT target FROM mutations
		ORDER BY target
	`)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		targets = append(targets, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate targets: %w", err)
	}

	if targets == nil {
		targets = []string{}
	}

	return targets, nil
}

// LastSeq returns the highest seq number in the journal.
// Used for recovery to resume the logical clock from the correct position.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	var maxSeq int64
	err := j.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM mutations
	`).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return maxSeq, nil
}

// collectMutations drains rows into a slice, returning an empty slice
// instead of nil.
func collectMutations(rows *sql.Rows) ([]ir.Mutation, error) {
	var muts []ir.Mutation
	for rows.Next() {
		m, err := scanMutation(rows)
		if err != nil {
			return nil, err
		}
		muts = append(muts, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}

	if muts == nil {
		muts = []ir.Mutation{}
	}

	return muts, nil
}

// scanMutation scans a row into a Mutation struct.
func scanMutation(rows *sql.Rows) (ir.Mutation, error) {
	var m ir.Mutation
	var scope, oldJSON, newJSON string

	if err := rows.Scan(
		&m.ID, &m.Target, &m.TypeName, &m.Property, &scope,
		&oldJSON, &newJSON, &m.Origin, &m.Depth, &m.Seq,
		&m.DeclHash, &m.EngineVersion,
	); err != nil {
		return ir.Mutation{}, fmt.Errorf("scan mutation: %w", err)
	}

	return finishMutation(m, scope, oldJSON, newJSON)
}

// scanMutationRow scans a single row into a Mutation struct.
func scanMutationRow(row *sql.Row) (ir.Mutation, error) {
	var m ir.Mutation
	var scope, oldJSON, newJSON string

	if err := row.Scan(
		&m.ID, &m.Target, &m.TypeName, &m.Property, &scope,
		&oldJSON, &newJSON, &m.Origin, &m.Depth, &m.Seq,
		&m.DeclHash, &m.EngineVersion,
	); err != nil {
		return ir.Mutation{}, err
	}

	return finishMutation(m, scope, oldJSON, newJSON)
}

func finishMutation(m ir.Mutation, scope, oldJSON, newJSON string) (ir.Mutation, error) {
	m.Scope = ir.Scope(scope)

	old, err := unmarshalValue(oldJSON)
	if err != nil {
		return ir.Mutation{}, err
	}
	m.Old = old

	newVal, err := unmarshalValue(newJSON)
	if err != nil {
		return ir.Mutation{}, err
	}
	m.New = newVal

	return m, nil
}
