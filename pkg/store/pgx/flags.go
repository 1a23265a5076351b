package pgx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

const insertFlagsSQL = `
INSERT INTO red_flags (entity_id, entity_name, entity_type, flag_type, severity, flag, detected_at)
SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[], $6::jsonb[], $7::timestamptz[])
`

// ReplaceFlags swaps the stored flag set inside one transaction so readers
// never observe a half-written detection run.
func (s *Store) ReplaceFlags(ctx context.Context, flags []store.StoredFlag) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return common.StoreError("replace flags", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM red_flags`); err != nil {
		return common.StoreError("replace flags", err)
	}

	err = store.ChunkRange(len(flags), s.batchSize, func(start, end int) error {
		n := end - start
		ids := make([]string, n)
		names := make([]string, n)
		types := make([]string, n)
		kinds := make([]string, n)
		severities := make([]string, n)
		payloads := make([]string, n)
		detected := make([]time.Time, n)
		for i, f := range flags[start:end] {
			raw, err := json.Marshal(f.Flag)
			if err != nil {
				return err
			}
			ids[i] = f.Entity.ID
			names[i] = f.Entity.Name
			types[i] = string(f.Entity.Type)
			kinds[i] = f.Flag.Type
			severities[i] = string(f.Flag.Severity)
			payloads[i] = string(raw)
			detected[i] = f.Flag.DetectedAt.UTC()
		}
		_, err := tx.Exec(ctx, insertFlagsSQL, ids, names, types, kinds, severities, payloads, detected)
		return err
	})
	if err != nil {
		return common.StoreError("replace flags", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return common.StoreError("replace flags", err)
	}
	return nil
}

func (s *Store) ListFlags(ctx context.Context, severity common.Severity, limit int) ([]common.FlaggedEntity, error) {
	rows, err := s.conn.Query(ctx, `
SELECT entity_id, entity_name, entity_type, flag
FROM red_flags
WHERE $1 = '' OR severity = $1
ORDER BY entity_id, id`, string(severity))
	if err != nil {
		return nil, common.StoreError("list flags", err)
	}
	defer rows.Close()

	var stored []store.StoredFlag
	for rows.Next() {
		var (
			f   store.StoredFlag
			typ string
			raw []byte
		)
		if err := rows.Scan(&f.Entity.ID, &f.Entity.Name, &typ, &raw); err != nil {
			return nil, common.StoreError("list flags", err)
		}
		f.Entity.Type = common.NodeType(typ)
		if err := json.Unmarshal(raw, &f.Flag); err != nil {
			return nil, common.StoreError("list flags", err)
		}
		stored = append(stored, f)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StoreError("list flags", err)
	}
	return store.GroupFlags(stored, severity, limit), nil
}
