package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	"github.com/allisson/auditchain/internal/testutil"
)

func TestMySQLPurgedRangeRepository_CreateAndListOverlapping(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLPurgedRangeRepository(db)
	ctx := context.Background()

	first := buildTestPurgedRange("patient-42", 3, 5)
	second := buildTestPurgedRange("patient-42", 10, 12)
	for _, r := range []*auditDomain.PurgedRange{first, second} {
		require.NoError(t, repo.Create(ctx, r))
	}

	ranges, err := repo.ListOverlapping(ctx, "patient-42", 0, 11)
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	assert.Equal(t, first.TailHash, ranges[0].TailHash)

	ranges, err = repo.ListOverlapping(ctx, "patient-42", 6, 9)
	require.NoError(t, err)
	assert.Empty(t, ranges)
}
