package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qualichat/qc-backend/internal/entity"
)

// DatasetRepository persists metadata about uploaded spreadsheets.
// Table contents stay in memory; only provenance is recorded.
type DatasetRepository interface {
	CreateDataset(ctx context.Context, meta *entity.DatasetMeta) error
	LatestDataset(ctx context.Context, sessionID string) (*entity.DatasetMeta, error)
}

var _ DatasetRepository = &DatasetPostgres{}

// DatasetPostgres implements DatasetRepository using PostgreSQL.
type DatasetPostgres struct {
	db *pgxpool.Pool
}

func NewDatasetPostgres(db *pgxpool.Pool) *DatasetPostgres {
	return &DatasetPostgres{db: db}
}

func (r *DatasetPostgres) CreateDataset(ctx context.Context, meta *entity.DatasetMeta) error {
	columns, err := json.Marshal(meta.Columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}
	mapping, err := json.Marshal(meta.Mapping)
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO datasets (id, session_id, filename, row_count, columns, mapping, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		meta.ID, meta.SessionID, meta.Filename, meta.Rows, columns, mapping, meta.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

func (r *DatasetPostgres) LatestDataset(ctx context.Context, sessionID string) (*entity.DatasetMeta, error) {
	var (
		meta    entity.DatasetMeta
		columns []byte
		mapping []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, session_id, filename, row_count, columns, mapping, uploaded_at
		FROM datasets
		WHERE session_id = $1
		ORDER BY uploaded_at DESC
		LIMIT 1`,
		sessionID,
	).Scan(&meta.ID, &meta.SessionID, &meta.Filename, &meta.Rows, &columns, &mapping, &meta.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrNoDataset
	}
	if err != nil {
		return nil, fmt.Errorf("get latest dataset: %w", err)
	}

	if err := json.Unmarshal(columns, &meta.Columns); err != nil {
		return nil, fmt.Errorf("decode columns: %w", err)
	}
	if err := json.Unmarshal(mapping, &meta.Mapping); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	return &meta, nil
}
