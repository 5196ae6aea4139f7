package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"railwatch/internal/types"
)

// CrowdReportRepository provides data access for the crowd_reports table,
// which stores individual rider reports. The engine only ever sees the
// aggregated consensus.
type CrowdReportRepository struct {
	db DBTX
}

// NewCrowdReportRepository creates a CrowdReportRepository backed by the given
// database connection (pool or transaction).
func NewCrowdReportRepository(db DBTX) *CrowdReportRepository {
	return &CrowdReportRepository{db: db}
}

// Insert stores a single rider report.
func (r *CrowdReportRepository) Insert(ctx context.Context, routeID string, report types.ConsensusState, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO crowd_reports (id, route_id, report_type, reported_at)
		 VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), routeID, string(report), at)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert crowd report", err)
	}
	return nil
}

// Aggregate computes the report consensus for a route over the window ending
// at now. An empty window yields an unknown consensus with zero counts; the
// scoring side ignores those.
func (r *CrowdReportRepository) Aggregate(ctx context.Context, routeID string, window time.Duration, now time.Time) (*types.CrowdsourcedStatus, error) {
	rows, err := r.db.Query(ctx,
		`SELECT report_type, COUNT(*) FROM crowd_reports
		 WHERE route_id = $1 AND reported_at >= $2 AND reported_at <= $3
		 GROUP BY report_type`,
		routeID, now.Add(-window), now)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query crowd reports", err)
	}
	defer rows.Close()

	var counts types.ReportCounts
	for rows.Next() {
		var (
			reportType string
			n          int
		)
		if err := rows.Scan(&reportType, &n); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan crowd report row", err)
		}
		switch types.ConsensusState(reportType) {
		case types.ConsensusStopped:
			counts.Stopped = n
		case types.ConsensusDelayed:
			counts.Delayed = n
		case types.ConsensusCrowded:
			counts.Crowded = n
		case types.ConsensusNormal:
			counts.Resumed = n
		}
		counts.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating crowd report rows", err)
	}

	return &types.CrowdsourcedStatus{
		RouteID:     routeID,
		ReportCount: counts.Total,
		Consensus:   consensusOf(counts),
		Counts:      counts,
	}, nil
}

// consensusOf picks the dominant report type. Ties break toward the more
// severe state so a split window never hides a stoppage.
func consensusOf(c types.ReportCounts) types.ConsensusState {
	if c.Total == 0 {
		return types.ConsensusUnknown
	}
	best := types.ConsensusNormal
	bestCount := c.Resumed
	for _, cand := range []struct {
		state types.ConsensusState
		count int
	}{
		{types.ConsensusCrowded, c.Crowded},
		{types.ConsensusDelayed, c.Delayed},
		{types.ConsensusStopped, c.Stopped},
	} {
		if cand.count >= bestCount && cand.count > 0 {
			best = cand.state
			bestCount = cand.count
		}
	}
	return best
}
