package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-db-replicator/internal/model"
)

func initTestTracking(t *testing.T) {
	t.Helper()
	require.NoError(t, InitTracking(filepath.Join(t.TempDir(), "tracking.db")))
	t.Cleanup(func() { CloseTracking() })
}

func TestRunHistory(t *testing.T) {
	initTestTracking(t)

	require.NoError(t, SaveRun("run-1", model.ActionExportAll, "schedule"))
	require.NoError(t, SaveRun("run-2", model.ActionCopyAll, "watch"))

	t.Run("new runs start as running", func(t *testing.T) {
		run, err := GetRun("run-1")
		require.NoError(t, err)
		assert.Equal(t, "running", run["status"])
		assert.Equal(t, "exportAll", run["action"])
		assert.Equal(t, "schedule", run["trigger"])
		assert.NotContains(t, run, "finishedAt")
	})

	t.Run("finish stamps status and end time", func(t *testing.T) {
		require.NoError(t, FinishRun("run-1", "completed"))

		run, err := GetRun("run-1")
		require.NoError(t, err)
		assert.Equal(t, "completed", run["status"])
		assert.Contains(t, run, "finishedAt")
	})

	t.Run("list returns every run", func(t *testing.T) {
		runs, err := ListRuns()
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})
}

func TestTableResults(t *testing.T) {
	initTestTracking(t)
	require.NoError(t, SaveRun("run-1", model.ActionExportAll, "manual"))

	require.NoError(t, SaveTableResult("run-1", model.TableResult{
		Table: "users", Success: true, Rows: 5,
		Artifacts: []model.ExportArtifact{{Format: model.FormatCSV, Path: "out/users.csv", RecordCount: 5}},
	}))
	require.NoError(t, SaveTableResult("run-1", model.TableResult{
		Table: "orders", Error: "boom",
	}))

	results, err := GetRunResults("run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "users", results[0].Table)
	assert.True(t, results[0].Success)
	assert.Equal(t, int64(5), results[0].Rows)
	require.Len(t, results[0].Artifacts, 1)
	assert.Equal(t, model.FormatCSV, results[0].Artifacts[0].Format)

	assert.Equal(t, "orders", results[1].Table)
	assert.False(t, results[1].Success)
	assert.Equal(t, "boom", results[1].Error)
}

func TestRunErrors(t *testing.T) {
	initTestTracking(t)
	require.NoError(t, SaveRun("run-1", model.ActionCopyAll, "api"))

	require.NoError(t, SaveRunError("run-1", errors.New("source went away")))
	require.NoError(t, SaveRunError("run-1", nil)) // nil errors are ignored

	errs, err := GetRunErrors("run-1")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "source went away", errs[0]["error"])
}

func TestTrackingDisabled(t *testing.T) {
	// without InitTracking the writers are no-ops
	require.NoError(t, CloseTracking())
	assert.NoError(t, SaveRun("x", model.ActionExportAll, "schedule"))
	assert.NoError(t, SaveTableResult("x", model.TableResult{Table: "t"}))
	assert.NoError(t, SaveRunError("x", errors.New("ignored")))
	assert.NoError(t, FinishRun("x", "completed"))
}
