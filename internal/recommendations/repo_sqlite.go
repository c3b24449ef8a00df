package recommendations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"advisor-backend/internal/catalog"
	"advisor-backend/internal/engine"
)

// sqliteTime is fixed-width so text ordering matches time ordering.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepo implements Repo on a single-node SQLite database.
type SQLiteRepo struct {
	DB *sqlx.DB
}

// NewSQLiteRepo wraps an open modernc sqlite handle.
func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	// sqlx picks its bind style from the driver name; modernc registers as "sqlite".
	return &SQLiteRepo{DB: sqlx.NewDb(db, "sqlite3")}
}

type sqliteRow struct {
	ID             string `db:"id"`
	UserID         string `db:"user_id"`
	InputText      string `db:"input_text"`
	Source         string `db:"source"`
	DocumentKey    string `db:"document_key"`
	AdditionalInfo string `db:"additional_info"`
	State          string `db:"state"`
	Outcome        string `db:"outcome"`
	ConfidenceFlag string `db:"confidence_flag"`
	Platform       string `db:"platform"`
	BusinessType   string `db:"business_type"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

func toSQLiteRow(rec Record) (sqliteRow, error) {
	row := sqliteRow{
		ID:             rec.ID,
		UserID:         rec.UserID,
		InputText:      rec.InputText,
		Source:         rec.Source,
		DocumentKey:    rec.DocumentKey,
		State:          string(rec.State),
		ConfidenceFlag: string(rec.ConfidenceFlag),
		Platform:       string(rec.Platform),
		BusinessType:   string(rec.BusinessType),
		CreatedAt:      rec.CreatedAt.UTC().Format(sqliteTime),
		UpdatedAt:      rec.UpdatedAt.UTC().Format(sqliteTime),
	}
	if rec.AdditionalInfo != nil {
		info, err := json.Marshal(rec.AdditionalInfo)
		if err != nil {
			return sqliteRow{}, fmt.Errorf("marshal additional info: %w", err)
		}
		row.AdditionalInfo = string(info)
	}
	outcome, err := json.Marshal(rec.Outcome)
	if err != nil {
		return sqliteRow{}, fmt.Errorf("marshal outcome: %w", err)
	}
	row.Outcome = string(outcome)
	return row, nil
}

func (row sqliteRow) record() (Record, error) {
	rec := Record{
		ID:             row.ID,
		UserID:         row.UserID,
		InputText:      row.InputText,
		Source:         row.Source,
		DocumentKey:    row.DocumentKey,
		State:          engine.State(row.State),
		ConfidenceFlag: engine.ConfidenceFlag(row.ConfidenceFlag),
		Platform:       catalog.Platform(row.Platform),
		BusinessType:   catalog.BusinessType(row.BusinessType),
	}
	var err error
	if rec.CreatedAt, err = time.Parse(sqliteTime, row.CreatedAt); err != nil {
		return Record{}, fmt.Errorf("parse created_at for %s: %w", row.ID, err)
	}
	if rec.UpdatedAt, err = time.Parse(sqliteTime, row.UpdatedAt); err != nil {
		return Record{}, fmt.Errorf("parse updated_at for %s: %w", row.ID, err)
	}
	if err := decodeJSONColumns(&rec, row.AdditionalInfo, []byte(row.Outcome)); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Create inserts a new record.
func (r *SQLiteRepo) Create(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO recommendations (
	id, user_id, input_text, source, document_key, additional_info, state, outcome,
	confidence_flag, platform, business_type, created_at, updated_at
)
VALUES (
	:id, :user_id, :input_text, :source, :document_key, :additional_info, :state, :outcome,
	:confidence_flag, :platform, :business_type, :created_at, :updated_at
)`
	row, err := toSQLiteRow(rec)
	if err != nil {
		return err
	}
	_, err = r.DB.NamedExecContext(ctx, query, row)
	return err
}

// GetByID returns a record by ID.
func (r *SQLiteRepo) GetByID(ctx context.Context, id string) (Record, error) {
	var row sqliteRow
	if err := r.DB.GetContext(ctx, &row, `SELECT * FROM recommendations WHERE id = ? LIMIT 1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return row.record()
}

// Update rewrites the outcome of an existing record still in state from.
func (r *SQLiteRepo) Update(ctx context.Context, rec Record, from engine.State) error {
	const query = `
UPDATE recommendations
SET additional_info = :additional_info,
    state = :state,
    outcome = :outcome,
    confidence_flag = :confidence_flag,
    platform = :platform,
    business_type = :business_type,
    updated_at = :updated_at
WHERE id = :id AND state = :from_state`
	row, err := toSQLiteRow(rec)
	if err != nil {
		return err
	}
	args := struct {
		sqliteRow
		FromState string `db:"from_state"`
	}{row, string(from)}
	res, err := r.DB.NamedExecContext(ctx, query, args)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := r.DB.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM recommendations WHERE id = ?)`, rec.ID); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrAlreadyResolved
	}
	return nil
}

// ListByUser lists records for a user ordered newest-first.
func (r *SQLiteRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Record, error) {
	limit, offset = clampPage(limit, offset)
	var rows []sqliteRow
	const query = `
SELECT * FROM recommendations
WHERE user_id = ?
ORDER BY created_at DESC
LIMIT ? OFFSET ?`
	if err := r.DB.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

var _ Repo = (*SQLiteRepo)(nil)
