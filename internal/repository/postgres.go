package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flagflow/ml-service/internal/config"
	"github.com/flagflow/ml-service/internal/domain"
)

const assessmentsSchema = `
CREATE TABLE IF NOT EXISTS risk_assessments (
	id               UUID PRIMARY KEY,
	overall_score    DOUBLE PRECISION NOT NULL,
	risk_level       TEXT NOT NULL,
	sar_recommendation TEXT NOT NULL,
	confidence_level TEXT NOT NULL,
	category_scores  JSONB NOT NULL,
	risk_factors     JSONB NOT NULL,
	duration_ms      BIGINT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_risk_assessments_created_at ON risk_assessments (created_at);
CREATE INDEX IF NOT EXISTS idx_risk_assessments_risk_level ON risk_assessments (risk_level);
`

// PostgresRepository persists completed risk assessments for audit
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to PostgreSQL and ensures the schema exists
func NewPostgresRepository(ctx context.Context, cfg *config.DatabaseConfig) (*PostgresRepository, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, assessmentsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// SaveAssessment inserts an assessment audit row
func (r *PostgresRepository) SaveAssessment(ctx context.Context, result *domain.InvestigationResult) error {
	categoryScores, err := json.Marshal(result.Assessment.CategoryScores)
	if err != nil {
		return fmt.Errorf("marshal category scores: %w", err)
	}
	riskFactors, err := json.Marshal(result.Assessment.RiskFactorsSummary)
	if err != nil {
		return fmt.Errorf("marshal risk factors: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO risk_assessments
			(id, overall_score, risk_level, sar_recommendation, confidence_level,
			 category_scores, risk_factors, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		result.ID,
		result.Assessment.OverallRiskScore,
		string(result.Assessment.RiskLevel),
		string(result.Assessment.SARRecommendation),
		string(result.Assessment.ConfidenceLevel),
		categoryScores,
		riskFactors,
		result.DurationMs,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases the connection pool
func (r *PostgresRepository) Close() {
	r.pool.Close()
}
