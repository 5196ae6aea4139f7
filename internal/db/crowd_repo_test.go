package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"railwatch/internal/types"
)

func countScan(reportType string, n int) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = reportType
		*dest[1].(*int) = n
		return nil
	}
}

func TestCrowdReportRepository_Aggregate(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewCrowdReportRepository(dbMock)

	rows := &mockRows{scans: []func(dest ...any) error{
		countScan(string(types.ConsensusStopped), 5),
		countScan(string(types.ConsensusDelayed), 2),
		countScan(string(types.ConsensusNormal), 1),
	}}
	dbMock.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(rows, nil)

	status, err := repo.Aggregate(context.Background(), "jr-hokkaido.chitose", 30*time.Minute, time.Now())
	require.NoError(t, err)

	assert.Equal(t, types.ConsensusStopped, status.Consensus)
	assert.Equal(t, 8, status.ReportCount)
	assert.Equal(t, 5, status.Counts.Stopped)
	assert.Equal(t, 2, status.Counts.Delayed)
	assert.Equal(t, 1, status.Counts.Resumed)
}

func TestCrowdReportRepository_Aggregate_Empty(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewCrowdReportRepository(dbMock)

	dbMock.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRows{}, nil)

	status, err := repo.Aggregate(context.Background(), "jr-hokkaido.chitose", 30*time.Minute, time.Now())
	require.NoError(t, err)

	assert.Equal(t, types.ConsensusUnknown, status.Consensus)
	assert.Zero(t, status.ReportCount)
}

func TestConsensusOf_TieBreaksSevere(t *testing.T) {
	// Equal stopped and delayed counts: the stoppage wins.
	c := types.ReportCounts{Stopped: 3, Delayed: 3, Total: 6}
	assert.Equal(t, types.ConsensusStopped, consensusOf(c))

	// A clear normal majority wins over a single stoppage report.
	c = types.ReportCounts{Stopped: 1, Resumed: 5, Total: 6}
	assert.Equal(t, types.ConsensusNormal, consensusOf(c))
}
