package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/anime-shed/note-inspector-go/internal/repository"
)

const uniqueViolation = "23505"

type pgVerdictRepository struct {
	db *sql.DB
}

func NewPgVerdictRepository(db *sql.DB) repository.VerdictRepository {
	return &pgVerdictRepository{db: db}
}

const verdictColumns = `id, request_id, created_at, source, genuine, denomination, score, good_matches,
	reason, scoring_mode, candidate_keypoints, processing_time_ms`

func (r *pgVerdictRepository) SaveVerdict(ctx context.Context, v *repository.VerdictRecord) error {
	query := `INSERT INTO verdicts (` + verdictColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.RequestID, v.CreatedAt, v.Source, v.Genuine, v.Denomination, v.Score, v.GoodMatches,
		v.Reason, v.ScoringMode, v.CandidateFeatures, v.ProcessingTimeMs,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrDuplicateVerdict
		}
		return fmt.Errorf("VerdictRepository.SaveVerdict: %w", err)
	}
	return nil
}

func (r *pgVerdictRepository) GetVerdict(ctx context.Context, id string) (*repository.VerdictRecord, error) {
	query := `SELECT ` + verdictColumns + ` FROM verdicts WHERE id = $1`

	v, err := scanVerdict(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrVerdictNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
			// not a valid uuid
			return nil, repository.ErrVerdictNotFound
		}
		return nil, fmt.Errorf("VerdictRepository.GetVerdict: %w", err)
	}
	return v, nil
}

func (r *pgVerdictRepository) ListVerdicts(ctx context.Context, limit int) ([]*repository.VerdictRecord, error) {
	if limit <= 0 {
		limit = repository.DefaultHistoryCapacity
	}
	query := `SELECT ` + verdictColumns + ` FROM verdicts ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("VerdictRepository.ListVerdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []*repository.VerdictRecord
	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, fmt.Errorf("VerdictRepository.ListVerdicts scan: %w", err)
		}
		verdicts = append(verdicts, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("VerdictRepository.ListVerdicts rows: %w", err)
	}
	return verdicts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVerdict(row rowScanner) (*repository.VerdictRecord, error) {
	var v repository.VerdictRecord
	err := row.Scan(&v.ID, &v.RequestID, &v.CreatedAt, &v.Source, &v.Genuine, &v.Denomination, &v.Score,
		&v.GoodMatches, &v.Reason, &v.ScoringMode, &v.CandidateFeatures, &v.ProcessingTimeMs)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
