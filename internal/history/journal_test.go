package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"attendance-agent/internal/config"
	"attendance-agent/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestJournal(path string) *Journal {
	return NewJournal(Params{
		Config: &config.Config{OutputConfig: &config.OutputConfig{HistoryFile: path}},
		Logger: zap.NewNop(),
	})
}

func TestFormatLine(t *testing.T) {
	finished := time.Date(2026, 3, 2, 9, 5, 7, 0, time.UTC)

	assert.Equal(t, "SignedIn at 09:05:07 on 2026-03-02", FormatLine(&entity.Report{
		Outcome:    entity.OutcomeSignedIn,
		FinishedAt: finished,
	}))

	assert.Equal(t, "Error at 09:05:07 on 2026-03-02", FormatLine(&entity.Report{
		Outcome:    entity.OutcomeError,
		Detail:     "username_field_not_found",
		FinishedAt: finished,
	}))
}

func TestJournal_RecordAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "attendance.log")
	journal := newTestJournal(path)
	finished := time.Date(2026, 3, 2, 9, 5, 7, 0, time.UTC)

	require.NoError(t, journal.Record(context.Background(), &entity.Report{
		Outcome:    entity.OutcomeSignedIn,
		FinishedAt: finished,
	}))
	require.NoError(t, journal.Record(context.Background(), &entity.Report{
		Outcome:    entity.OutcomeAlreadySignedIn,
		FinishedAt: finished.Add(24 * time.Hour),
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "SignedIn at 09:05:07 on 2026-03-02\nAlreadySignedIn at 09:05:07 on 2026-03-03\n", string(data))
}

func TestJournal_EmptyPathDisables(t *testing.T) {
	assert.NoError(t, newTestJournal("").Record(context.Background(), &entity.Report{}))
}
