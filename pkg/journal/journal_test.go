package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/paddock/pkg/types"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestAppendFillsDefaults(t *testing.T) {
	j := openTestJournal(t)

	require.NoError(t, j.Append(types.OperationRecord{
		Operation: "bootstrap",
		Outcome:   types.OutcomeSuccess,
	}))

	records, err := j.Recent(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].ID)
	assert.False(t, records[0].StartedAt.IsZero())
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	j := openTestJournal(t)

	base := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	operations := []string{"bootstrap", "switchover", "remove-raft-member"}
	for i, op := range operations {
		require.NoError(t, j.Append(types.OperationRecord{
			Operation: op,
			Outcome:   types.OutcomeSuccess,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := j.Recent(0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "remove-raft-member", records[0].Operation)
	assert.Equal(t, "switchover", records[1].Operation)
	assert.Equal(t, "bootstrap", records[2].Operation)
}

func TestRecentOrdersSubSecondRecords(t *testing.T) {
	j := openTestJournal(t)

	// A whole-second timestamp must sort before a fractional one within
	// the same second.
	base := time.Date(2026, 8, 21, 10, 0, 5, 0, time.UTC)
	require.NoError(t, j.Append(types.OperationRecord{
		Operation: "first",
		StartedAt: base,
	}))
	require.NoError(t, j.Append(types.OperationRecord{
		Operation: "second",
		StartedAt: base.Add(500 * time.Millisecond),
	}))

	records, err := j.Recent(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "second", records[0].Operation)
	assert.Equal(t, "first", records[1].Operation)
}

func TestRecentHonorsLimit(t *testing.T) {
	j := openTestJournal(t)

	base := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		require.NoError(t, j.Append(types.OperationRecord{
			Operation: "update-members",
			Outcome:   types.OutcomeSuccess,
			StartedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	records, err := j.Recent(3)
	require.NoError(t, err)
	require.Len(t, records, 3)
}

func TestRecordRoundTrip(t *testing.T) {
	j := openTestJournal(t)

	in := types.OperationRecord{
		ID:        "op-1",
		Operation: "switchover",
		Member:    "postgresql-2",
		Outcome:   types.OutcomeFailure,
		Error:     "switchover failed: received status 412",
		StartedAt: time.Date(2026, 8, 21, 9, 30, 0, 0, time.UTC),
		Duration:  61 * time.Second,
	}
	require.NoError(t, j.Append(in))

	records, err := j.Recent(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, in.ID, records[0].ID)
	assert.Equal(t, in.Operation, records[0].Operation)
	assert.Equal(t, in.Member, records[0].Member)
	assert.Equal(t, in.Outcome, records[0].Outcome)
	assert.Equal(t, in.Error, records[0].Error)
	assert.Equal(t, in.Duration, records[0].Duration)
	assert.True(t, in.StartedAt.Equal(records[0].StartedAt))
}

func TestRecentOnEmptyJournal(t *testing.T) {
	j := openTestJournal(t)

	records, err := j.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
