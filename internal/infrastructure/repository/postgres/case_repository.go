package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

type CaseRepository struct {
	db *sql.DB
}

func NewCaseRepository(db *sql.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *CaseRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS verification_cases (
	id TEXT PRIMARY KEY,
	document_path TEXT NOT NULL,
	document_mime TEXT NOT NULL,
	selfie_path TEXT NOT NULL,
	selfie_mime TEXT NOT NULL,
	status TEXT NOT NULL,
	raw_text TEXT NOT NULL DEFAULT '',
	fields JSONB NOT NULL DEFAULT '{}'::jsonb,
	face_checked BOOLEAN NOT NULL DEFAULT FALSE,
	face_matched BOOLEAN NOT NULL DEFAULT FALSE,
	face_similarity DOUBLE PRECISION NOT NULL DEFAULT 0,
	face_message TEXT NOT NULL DEFAULT '',
	fraud_score INTEGER NOT NULL DEFAULT 0,
	risk_level TEXT NOT NULL DEFAULT '',
	fraud_indicators JSONB NOT NULL DEFAULT '[]'::jsonb,
	document_quality DOUBLE PRECISION NOT NULL DEFAULT 0,
	report TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_verification_cases_status ON verification_cases(status);
CREATE INDEX IF NOT EXISTS idx_verification_cases_created_at ON verification_cases(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CaseRepository) Create(ctx context.Context, kycCase *domain.VerificationCase) error {
	fieldsJSON, err := json.Marshal(kycCase.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO verification_cases (
	id, document_path, document_mime, selfie_path, selfie_mime, status, fields, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		kycCase.ID, kycCase.DocumentPath, kycCase.DocumentMime, kycCase.SelfiePath, kycCase.SelfieMime,
		string(kycCase.Status), fieldsJSON, kycCase.CreatedAt, kycCase.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

const caseColumns = `id, document_path, document_mime, selfie_path, selfie_mime, status, raw_text, fields,
face_checked, face_matched, face_similarity, face_message,
fraud_score, risk_level, fraud_indicators, document_quality, report, error_message, created_at, updated_at`

func (r *CaseRepository) GetByID(ctx context.Context, id string) (*domain.VerificationCase, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+caseColumns+`
FROM verification_cases
WHERE id = $1
`, id)

	kycCase, err := scanCase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCaseNotFound, "postgres.GetByID", fmt.Errorf("case %s", id))
		}
		return nil, fmt.Errorf("scan case: %w", err)
	}
	return kycCase, nil
}

func (r *CaseRepository) UpdateStatus(ctx context.Context, id string, status domain.CaseStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE verification_cases
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update case status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrCaseNotFound, "postgres.UpdateStatus", fmt.Errorf("case %s", id))
	}
	return nil
}

// SaveResult writes everything the pipeline produced in one statement. The
// status itself is written separately so a crashed worker leaves the case
// visibly stuck in processing.
func (r *CaseRepository) SaveResult(ctx context.Context, kycCase *domain.VerificationCase) error {
	fieldsJSON, err := json.Marshal(kycCase.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	indicatorsJSON, err := json.Marshal(kycCase.Fraud.Indicators)
	if err != nil {
		return fmt.Errorf("marshal indicators: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE verification_cases
SET raw_text = $2, fields = $3,
	face_checked = $4, face_matched = $5, face_similarity = $6, face_message = $7,
	fraud_score = $8, risk_level = $9, fraud_indicators = $10,
	document_quality = $11, report = $12, updated_at = $13
WHERE id = $1
`,
		kycCase.ID, kycCase.RawText, fieldsJSON,
		kycCase.Face.Checked, kycCase.Face.Matched, kycCase.Face.Similarity, kycCase.Face.Message,
		kycCase.Fraud.Score, string(kycCase.Fraud.Risk), indicatorsJSON,
		kycCase.DocumentQuality, kycCase.Report, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save case result: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrCaseNotFound, "postgres.SaveResult", fmt.Errorf("case %s", kycCase.ID))
	}
	return nil
}

func (r *CaseRepository) ListRecent(ctx context.Context, limit int) ([]domain.VerificationCase, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+caseColumns+`
FROM verification_cases
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent cases: %w", err)
	}
	defer rows.Close()

	var cases []domain.VerificationCase
	for rows.Next() {
		kycCase, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, *kycCase)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return cases, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*domain.VerificationCase, error) {
	var kycCase domain.VerificationCase
	var fieldsRaw, indicatorsRaw []byte
	var status, risk string

	err := row.Scan(
		&kycCase.ID, &kycCase.DocumentPath, &kycCase.DocumentMime, &kycCase.SelfiePath, &kycCase.SelfieMime,
		&status, &kycCase.RawText, &fieldsRaw,
		&kycCase.Face.Checked, &kycCase.Face.Matched, &kycCase.Face.Similarity, &kycCase.Face.Message,
		&kycCase.Fraud.Score, &risk, &indicatorsRaw,
		&kycCase.DocumentQuality, &kycCase.Report, &kycCase.Error, &kycCase.CreatedAt, &kycCase.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(fieldsRaw, &kycCase.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	if err := json.Unmarshal(indicatorsRaw, &kycCase.Fraud.Indicators); err != nil {
		return nil, fmt.Errorf("unmarshal indicators: %w", err)
	}
	kycCase.Status = domain.CaseStatus(status)
	kycCase.Fraud.Risk = domain.RiskLevel(risk)
	return &kycCase, nil
}
