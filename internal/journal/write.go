package journal

import (
	"context"
	"fmt"

	"github.com/roach88/prism/internal/ir"
)

// Append inserts a mutation record into the journal.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - mutation IDs are
// content-addressed, so a duplicate ID is the same mutation and is
// silently ignored. Other constraint violations (e.g., NOT NULL) still
// return errors.
//
// Old and new values are serialized to canonical JSON per RFC 8785 for
// deterministic replay.
func (j *Journal) Append(ctx context.Context, m ir.Mutation) error {
	oldJSON, err := marshalValue(m.Old)
	if err != nil {
		return fmt.Errorf("append mutation: %w", err)
	}
	newJSON, err := marshalValue(m.New)
	if err != nil {
		return fmt.Errorf("append mutation: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO mutations
		(id, target, type_name, property, scope, old_value, new_value, origin, depth, seq, decl_hash, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		m.ID,
		m.Target,
		m.TypeName,
		m.Property,
		string(m.Scope),
		oldJSON,
		newJSON,
		m.Origin,
		m.Depth,
		m.Seq,
		m.DeclHash,
		m.EngineVersion,
	)
	if err != nil {
		return fmt.Errorf("append mutation: %w", err)
	}

	return nil
}

// Record implements the evaluator's Recorder interface. The write path is
// synchronous, so each committed write lands in the journal before the
// evaluator's Set returns.
func (j *Journal) Record(m ir.Mutation) error {
	return j.Append(context.Background(), m)
}
