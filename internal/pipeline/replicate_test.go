package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-db-replicator/internal/model"
	"go-db-replicator/internal/store"
)

func openSQLite(t *testing.T, name string) *store.DB {
	t.Helper()
	d, err := store.Open(model.ConnectionDescriptor{
		Driver: model.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), name),
	})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func seededSource(t *testing.T) *store.DB {
	t.Helper()
	src := openSQLite(t, "source.db")
	require.NoError(t, store.Seed(context.Background(), src))
	return src
}

func TestBuildExtractionQuery(t *testing.T) {
	src := openSQLite(t, "source.db")

	t.Run("explicit query wins", func(t *testing.T) {
		q := BuildExtractionQuery(src, model.TableSpec{
			Table: "users", Query: "SELECT id FROM users WHERE id > 2",
			Columns: []string{"name"},
		})
		assert.Equal(t, "SELECT id FROM users WHERE id > 2", q)
	})

	t.Run("column subset is quoted", func(t *testing.T) {
		q := BuildExtractionQuery(src, model.TableSpec{Table: "users", Columns: []string{"id", "name"}})
		assert.Equal(t, `SELECT "id", "name" FROM "users"`, q)
	})

	t.Run("select all by default", func(t *testing.T) {
		q := BuildExtractionQuery(src, model.TableSpec{Table: "users"})
		assert.Equal(t, `SELECT * FROM "users"`, q)
	})
}

func TestCopy(t *testing.T) {
	ctx := context.Background()

	t.Run("copies a full table", func(t *testing.T) {
		src := seededSource(t)
		dst := openSQLite(t, "dest.db")

		res, err := Copy(ctx, model.TableSpec{Table: "users"}, src, dst, model.ExistsFail)
		require.NoError(t, err)
		assert.Equal(t, int64(5), res.RowsRead)
		assert.Equal(t, int64(5), res.RowsWritten)
		assert.False(t, res.Skipped)

		count, err := dst.QueryCount(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)
	})

	t.Run("replace policy is idempotent across reruns", func(t *testing.T) {
		src := seededSource(t)
		dst := openSQLite(t, "dest.db")

		for i := 0; i < 2; i++ {
			res, err := Copy(ctx, model.TableSpec{Table: "orders"}, src, dst, model.ExistsReplace)
			require.NoError(t, err)
			assert.Equal(t, int64(6), res.RowsWritten)
		}
		count, err := dst.QueryCount(ctx, "orders")
		require.NoError(t, err)
		assert.Equal(t, int64(6), count)
	})

	t.Run("fail policy reports destinationExists", func(t *testing.T) {
		src := seededSource(t)
		dst := openSQLite(t, "dest.db")

		_, err := Copy(ctx, model.TableSpec{Table: "users"}, src, dst, model.ExistsFail)
		require.NoError(t, err)

		_, err = Copy(ctx, model.TableSpec{Table: "users"}, src, dst, model.ExistsFail)
		var re *model.ReplicationError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, model.ReasonDestinationExists, re.Reason)
	})

	t.Run("missing source table reports extractionFailed", func(t *testing.T) {
		src := openSQLite(t, "empty.db")
		dst := openSQLite(t, "dest.db")

		_, err := Copy(ctx, model.TableSpec{Table: "ghosts"}, src, dst, model.ExistsReplace)
		var re *model.ReplicationError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, model.ReasonExtractionFailed, re.Reason)
	})

	t.Run("min rows gate skips small tables without touching the destination", func(t *testing.T) {
		src := seededSource(t)
		dst := openSQLite(t, "dest.db")

		res, err := Copy(ctx, model.TableSpec{Table: "users", MinRows: 10}, src, dst, model.ExistsReplace)
		require.NoError(t, err)
		assert.True(t, res.Skipped)
		assert.NotEmpty(t, res.SkipReason)

		tables, err := dst.ListTables(ctx)
		require.NoError(t, err)
		assert.Empty(t, tables)
	})

	t.Run("min rows gate passes above threshold", func(t *testing.T) {
		src := seededSource(t)
		dst := openSQLite(t, "dest.db")

		res, err := Copy(ctx, model.TableSpec{Table: "orders", MinRows: 5}, src, dst, model.ExistsReplace)
		require.NoError(t, err)
		assert.False(t, res.Skipped)
		assert.Equal(t, int64(6), res.RowsWritten)
	})

	t.Run("query spec copies a projection", func(t *testing.T) {
		src := seededSource(t)
		dst := openSQLite(t, "dest.db")

		spec := model.TableSpec{Table: "big_orders", Query: "SELECT id, user_id FROM orders WHERE id > 3"}
		res, err := Copy(ctx, spec, src, dst, model.ExistsFail)
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.RowsWritten)

		back, err := dst.Query(ctx, "SELECT id, user_id FROM big_orders ORDER BY id")
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "user_id"}, back.Columns)
		assert.Equal(t, 3, back.RowCount())
	})
}
