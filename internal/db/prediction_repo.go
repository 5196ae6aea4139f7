package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"railwatch/internal/types"
)

// PredictionLog is one persisted prediction, kept for accuracy verification
// against the observed outcome.
type PredictionLog struct {
	ID                 string                `json:"id"`
	RouteID            string                `json:"route_id"`
	TargetDate         string                `json:"target_date"`
	TargetTime         string                `json:"target_time"`
	Probability        int                   `json:"probability"`
	Status             types.OperationState  `json:"status"`
	Confidence         types.ConfidenceLevel `json:"confidence"`
	Reasons            types.Reasons         `json:"reasons"`
	IsOfficialOverride bool                  `json:"is_official_override"`
	CreatedAt          time.Time             `json:"created_at"`
}

// PredictionRepository provides data access for the prediction_logs table.
type PredictionRepository struct {
	db DBTX
}

// NewPredictionRepository creates a PredictionRepository backed by the given
// database connection (pool or transaction).
func NewPredictionRepository(db DBTX) *PredictionRepository {
	return &PredictionRepository{db: db}
}

const predictionColumns = `id, route_id, target_date, target_time, probability,
	status, confidence, reasons, is_official_override, created_at`

// Insert records a freshly computed prediction. Reasons are stored as JSONB
// via the types.Reasons Valuer.
func (r *PredictionRepository) Insert(ctx context.Context, res *types.PredictionResult) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO prediction_logs (id, route_id, target_date, target_time,
		 probability, status, confidence, reasons, is_official_override, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`,
		uuid.New().String(),
		res.RouteID,
		res.TargetDate,
		res.TargetTime,
		res.Probability,
		string(res.Status),
		string(res.Confidence),
		res.Reasons,
		res.IsOfficialOverride,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert prediction log", err)
	}
	return nil
}

// ListRecent returns the newest predictions for a route, most recent first.
func (r *PredictionRepository) ListRecent(ctx context.Context, routeID string, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+predictionColumns+` FROM prediction_logs
		 WHERE route_id = $1 ORDER BY created_at DESC LIMIT $2`,
		routeID, limit)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query prediction logs", err)
	}
	defer rows.Close()

	return scanPredictionLogs(rows)
}

// ListByTarget returns every prediction made for one route and service date,
// oldest first. The verification surface scores these against the observed
// outcome once the day is over.
func (r *PredictionRepository) ListByTarget(ctx context.Context, routeID, targetDate string) ([]PredictionLog, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+predictionColumns+` FROM prediction_logs
		 WHERE route_id = $1 AND target_date = $2 ORDER BY created_at ASC`,
		routeID, targetDate)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query prediction logs", err)
	}
	defer rows.Close()

	return scanPredictionLogs(rows)
}

// Latest returns the most recent prediction for a route and target date, or
// pgx.ErrNoRows wrapped in an AppError when none exists.
func (r *PredictionRepository) Latest(ctx context.Context, routeID, targetDate string) (*PredictionLog, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+predictionColumns+` FROM prediction_logs
		 WHERE route_id = $1 AND target_date = $2 ORDER BY created_at DESC LIMIT 1`,
		routeID, targetDate)

	log, err := scanPredictionLog(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundRoute, "no prediction recorded for route", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan prediction log", err)
	}
	return log, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPredictionLog(row rowScanner) (*PredictionLog, error) {
	var (
		log        PredictionLog
		status     string
		confidence string
	)
	err := row.Scan(
		&log.ID,
		&log.RouteID,
		&log.TargetDate,
		&log.TargetTime,
		&log.Probability,
		&status,
		&confidence,
		&log.Reasons,
		&log.IsOfficialOverride,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	log.Status = types.OperationState(status)
	log.Confidence = types.ConfidenceLevel(confidence)
	return &log, nil
}

func scanPredictionLogs(rows pgx.Rows) ([]PredictionLog, error) {
	var out []PredictionLog
	for rows.Next() {
		log, err := scanPredictionLog(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan prediction log row", err)
		}
		out = append(out, *log)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating prediction log rows", err)
	}
	return out, nil
}
