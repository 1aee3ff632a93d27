package trigger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-db-replicator/internal/model"
	"go-db-replicator/internal/pipeline"
	"go-db-replicator/internal/registry"
	"go-db-replicator/internal/store"
)

type orchFixture struct {
	orch   *Orchestrator
	dst    *store.DB
	outDir string
}

func newOrchFixture(t *testing.T) *orchFixture {
	t.Helper()
	ctx := context.Background()

	reg := registry.New()
	t.Cleanup(reg.Close)

	srcConn, err := reg.Register(ctx, "src", model.RoleSource, model.ConnectionDescriptor{
		Driver: model.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "source.db"),
	})
	require.NoError(t, err)
	require.NoError(t, store.Seed(ctx, srcConn.Conn.(*store.DB)))

	dstConn, err := reg.Register(ctx, "dst", model.RoleDestination, model.ConnectionDescriptor{
		Driver: model.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "dest.db"),
	})
	require.NoError(t, err)

	outDir := t.TempDir()
	p := pipeline.New(reg, outDir, model.ExistsReplace)
	orch := NewOrchestrator(p, []string{"src"}, []string{"dst"},
		[]model.Format{model.FormatCSV}, nil)

	return &orchFixture{orch: orch, dst: dstConn.Conn.(*store.DB), outDir: outDir}
}

func TestRunActionCopyAll(t *testing.T) {
	ctx := context.Background()
	fx := newOrchFixture(t)
	require.NoError(t, store.InitTracking(filepath.Join(t.TempDir(), "track.db")))
	t.Cleanup(func() { store.CloseTracking() })

	require.NoError(t, fx.orch.RunActionWithID(ctx, "run-copy", model.ActionCopyAll, "manual"))

	t.Run("destination holds every table", func(t *testing.T) {
		tables, err := fx.dst.ListTables(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"orders", "products", "users"}, tables)

		users, err := fx.dst.QueryCount(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, int64(5), users)
	})

	t.Run("run history records the outcome", func(t *testing.T) {
		run, err := store.GetRun("run-copy")
		require.NoError(t, err)
		assert.Equal(t, "completed", run["status"])
		assert.Equal(t, "copyAll", run["action"])

		results, err := store.GetRunResults("run-copy")
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})
}

func TestRunActionExportAll(t *testing.T) {
	ctx := context.Background()
	fx := newOrchFixture(t)

	require.NoError(t, fx.orch.RunActionWithID(ctx, "run-export", model.ActionExportAll, "manual"))

	entries, err := os.ReadDir(fx.outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3) // one csv per table

	// export never touches the destination
	tables, err := fx.dst.ListTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestRunActionUnknown(t *testing.T) {
	ctx := context.Background()
	fx := newOrchFixture(t)
	require.NoError(t, store.InitTracking(filepath.Join(t.TempDir(), "track.db")))
	t.Cleanup(func() { store.CloseTracking() })

	err := fx.orch.RunActionWithID(ctx, "run-bad", model.TriggerAction("vacuum"), "manual")
	require.Error(t, err)

	run, err := store.GetRun("run-bad")
	require.NoError(t, err)
	assert.Equal(t, "failed", run["status"])

	errs, err := store.GetRunErrors("run-bad")
	require.NoError(t, err)
	assert.Len(t, errs, 1)
}

func TestOrchestratorStateMachine(t *testing.T) {
	t.Run("rules register only before start", func(t *testing.T) {
		fx := newOrchFixture(t)
		require.NoError(t, fx.orch.Start(context.Background()))
		defer fx.orch.Stop()

		assert.Error(t, fx.orch.AddSchedule(model.ScheduleRule{Frequency: model.FreqHourly}))
		assert.Error(t, fx.orch.AddWatch(model.WatchRule{Directory: t.TempDir(), Action: model.ActionExportAll}))
	})

	t.Run("cannot start twice", func(t *testing.T) {
		fx := newOrchFixture(t)
		require.NoError(t, fx.orch.Start(context.Background()))
		defer fx.orch.Stop()
		assert.Error(t, fx.orch.Start(context.Background()))
	})

	t.Run("stopped is terminal", func(t *testing.T) {
		fx := newOrchFixture(t)
		require.NoError(t, fx.orch.Start(context.Background()))
		fx.orch.Stop()
		assert.Error(t, fx.orch.Start(context.Background()))
	})

	t.Run("a failing watch rule tears the start down", func(t *testing.T) {
		fx := newOrchFixture(t)
		require.NoError(t, fx.orch.AddSchedule(model.ScheduleRule{Frequency: model.FreqHourly}))
		require.NoError(t, fx.orch.AddWatch(model.WatchRule{Directory: "/no/such/dir", Action: model.ActionExportAll}))

		assert.Error(t, fx.orch.Start(context.Background()))
	})
}

func TestTriggerIndependence(t *testing.T) {
	// a watch firing runs its own action; the schedule mechanism stays idle
	fx := newOrchFixture(t)
	watchDir := t.TempDir()

	require.NoError(t, fx.orch.AddSchedule(model.ScheduleRule{Frequency: model.FreqDaily, TimeOfDay: "03:00"}))
	require.NoError(t, fx.orch.AddWatch(model.WatchRule{Directory: watchDir, Action: model.ActionExportAll}))

	require.NoError(t, fx.orch.Start(context.Background()))
	defer fx.orch.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(watchDir, "incoming.csv"), []byte("x"), 0644))

	// a create can surface as more than one fsnotify event, so count at
	// least one full export batch rather than an exact file total
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(fx.outDir)
		return err == nil && len(entries) >= 3
	}, 3*time.Second, 20*time.Millisecond)

	// the export-only watch never replicated anything
	tables, err := fx.dst.ListTables(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tables)
}
