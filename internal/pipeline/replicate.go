package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-db-replicator/internal/model"
	"go-db-replicator/internal/store"
)

// BuildExtractionQuery builds the source query for a spec. An explicit query
// wins over the column subset, which wins over select-all. Identifiers are
// quoted for src's dialect so reserved-word table names stay extractable.
func BuildExtractionQuery(src store.Conn, spec model.TableSpec) string {
	if spec.Query != "" {
		return spec.Query
	}
	table := src.QuoteIdent(spec.Table)
	if len(spec.Columns) > 0 {
		cols := make([]string, len(spec.Columns))
		for i, c := range spec.Columns {
			cols[i] = src.QuoteIdent(c)
		}
		return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table)
	}
	return fmt.Sprintf("SELECT * FROM %s", table)
}

// Copy replicates one table from src to dst under the exists policy. The
// source is never mutated. A MinRows gate below threshold reports a skipped
// result, not an error.
func Copy(ctx context.Context, spec model.TableSpec, src, dst store.Conn, policy model.ExistsPolicy) (*model.CopyResult, error) {
	if spec.MinRows > 0 && spec.Query == "" {
		count, err := countRows(ctx, src, spec.Table)
		if err != nil {
			return nil, &model.ReplicationError{Table: spec.Table, Reason: model.ReasonExtractionFailed, Err: err}
		}
		if count <= spec.MinRows {
			fmt.Printf("⏹️ Skipping %s: %d rows, threshold %d\n", spec.Table, count, spec.MinRows)
			return &model.CopyResult{
				Table:      spec.Table,
				Skipped:    true,
				SkipReason: fmt.Sprintf("source has %d rows, threshold is %d", count, spec.MinRows),
			}, nil
		}
	}

	result, err := src.Query(ctx, BuildExtractionQuery(src, spec))
	if err != nil {
		return nil, &model.ReplicationError{Table: spec.Table, Reason: model.ReasonExtractionFailed, Err: err}
	}
	fmt.Printf("ℹ️ Read %d rows from %s\n", result.RowCount(), spec.Table)

	written, err := dst.WriteTable(ctx, spec.Table, result, policy)
	if err != nil {
		reason := model.ReasonWriteFailed
		if errors.Is(err, store.ErrTableExists) {
			reason = model.ReasonDestinationExists
		}
		return nil, &model.ReplicationError{Table: spec.Table, Reason: reason, Err: err}
	}
	fmt.Printf("✅ Wrote %d rows to %s\n", written, spec.Table)

	return &model.CopyResult{
		Table:       spec.Table,
		RowsRead:    int64(result.RowCount()),
		RowsWritten: written,
	}, nil
}

func countRows(ctx context.Context, src store.Conn, table string) (int64, error) {
	// Conn implementations backed by *store.DB have a fast path
	if db, ok := src.(*store.DB); ok {
		return db.QueryCount(ctx, table)
	}
	res, err := src.Query(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", src.QuoteIdent(table)))
	if err != nil {
		return 0, err
	}
	if res.RowCount() == 0 || len(res.Rows[0]) == 0 {
		return 0, fmt.Errorf("empty count result for %s", table)
	}
	switch v := res.Rows[0][0].(type) {
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
