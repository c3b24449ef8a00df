package recommendations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"advisor-backend/internal/catalog"
	"advisor-backend/internal/engine"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const pgColumns = `id, user_id, input_text, source, document_key, additional_info, state, outcome,
       confidence_flag, platform, business_type, created_at, updated_at`

// Create inserts a new record.
func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO recommendations (
	id, user_id, input_text, source, document_key, additional_info, state, outcome,
	confidence_flag, platform, business_type, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	infoPayload, err := marshalInfo(rec.AdditionalInfo)
	if err != nil {
		return err
	}
	outcomePayload, err := json.Marshal(rec.Outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.InputText,
		rec.Source,
		nullString(rec.DocumentKey),
		infoPayload,
		string(rec.State),
		outcomePayload,
		nullString(string(rec.ConfidenceFlag)),
		nullString(string(rec.Platform)),
		nullString(string(rec.BusinessType)),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	return err
}

// GetByID returns a record by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Record, error) {
	query := `
SELECT ` + pgColumns + `
FROM recommendations
WHERE id = $1
LIMIT 1`
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// Update rewrites the outcome of an existing record still in state from.
func (r *PGRepo) Update(ctx context.Context, rec Record, from engine.State) error {
	const query = `
UPDATE recommendations
SET additional_info = $1::jsonb,
    state = $2,
    outcome = $3::jsonb,
    confidence_flag = $4,
    platform = $5,
    business_type = $6,
    updated_at = $7
WHERE id = $8::uuid AND state = $9`

	infoPayload, err := marshalInfo(rec.AdditionalInfo)
	if err != nil {
		return err
	}
	outcomePayload, err := json.Marshal(rec.Outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, query,
		infoPayload,
		string(rec.State),
		outcomePayload,
		nullString(string(rec.ConfidenceFlag)),
		nullString(string(rec.Platform)),
		nullString(string(rec.BusinessType)),
		rec.UpdatedAt,
		rec.ID,
		string(from),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.missingOrMoved(ctx, rec.ID)
	}
	return nil
}

// missingOrMoved explains an update that matched no row.
func (r *PGRepo) missingOrMoved(ctx context.Context, id string) error {
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM recommendations WHERE id = $1::uuid)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyResolved
}

// ListByUser lists records for a user ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Record, error) {
	limit, offset = clampPage(limit, offset)
	query := `
SELECT ` + pgColumns + `
FROM recommendations
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var state string
	var documentKey, additionalInfo, confidenceFlag, platform, businessType sql.NullString
	var outcome []byte
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.InputText,
		&rec.Source,
		&documentKey,
		&additionalInfo,
		&state,
		&outcome,
		&confidenceFlag,
		&platform,
		&businessType,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return Record{}, err
	}
	rec.State = engine.State(state)
	rec.DocumentKey = documentKey.String
	rec.ConfidenceFlag = engine.ConfidenceFlag(confidenceFlag.String)
	rec.Platform = catalog.Platform(platform.String)
	rec.BusinessType = catalog.BusinessType(businessType.String)
	if err := decodeJSONColumns(&rec, additionalInfo.String, outcome); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func decodeJSONColumns(rec *Record, info string, outcome []byte) error {
	if info != "" && info != "null" {
		var ai engine.AdditionalInfo
		if err := json.Unmarshal([]byte(info), &ai); err != nil {
			return fmt.Errorf("decode additional_info for %s: %w", rec.ID, err)
		}
		rec.AdditionalInfo = &ai
	}
	if len(outcome) > 0 {
		if err := json.Unmarshal(outcome, &rec.Outcome); err != nil {
			return fmt.Errorf("decode outcome for %s: %w", rec.ID, err)
		}
	}
	return nil
}

func marshalInfo(info *engine.AdditionalInfo) (any, error) {
	if info == nil {
		return nil, nil
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("marshal additional info: %w", err)
	}
	return payload, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
