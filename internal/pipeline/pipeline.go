// Package pipeline composes the registry, exporter and replicator into
// table-level and whole-store operations.
package pipeline

import (
	"context"
	"fmt"

	"go-db-replicator/internal/model"
	"go-db-replicator/internal/registry"
)

// Pipeline is the facade over registry + exporter + replicator. Batch
// operations attempt every table, isolate failures, and return one result
// per attempted table — a member failure never aborts the batch.
type Pipeline struct {
	Registry     *registry.Registry
	Exporter     *Exporter
	ExistsPolicy model.ExistsPolicy
}

// New creates a pipeline facade writing artifacts under outputDir.
func New(reg *registry.Registry, outputDir string, policy model.ExistsPolicy) *Pipeline {
	if policy == "" {
		// destructive replace stays opt-in; fail is the safer default
		policy = model.ExistsFail
	}
	return &Pipeline{
		Registry:     reg,
		Exporter:     NewExporter(outputDir),
		ExistsPolicy: policy,
	}
}

// CopyTable copies a single table from a named source to a named destination.
func (p *Pipeline) CopyTable(ctx context.Context, sourceName, destName string, spec model.TableSpec) (*model.CopyResult, error) {
	src, err := p.Registry.Get(sourceName, model.RoleSource)
	if err != nil {
		return nil, err
	}
	dst, err := p.Registry.Get(destName, model.RoleDestination)
	if err != nil {
		return nil, err
	}
	return Copy(ctx, spec, src.Conn, dst.Conn, p.ExistsPolicy)
}

// ExportTableToFiles extracts one table (or query) and writes the requested
// artifact formats. Returns the artifacts that succeeded.
func (p *Pipeline) ExportTableToFiles(ctx context.Context, sourceName string, spec model.TableSpec, formats []model.Format) ([]model.ExportArtifact, error) {
	src, err := p.Registry.Get(sourceName, model.RoleSource)
	if err != nil {
		return nil, err
	}
	result, err := src.Conn.Query(ctx, BuildExtractionQuery(src.Conn, spec))
	if err != nil {
		return nil, &model.ReplicationError{Table: spec.Table, Reason: model.ReasonExtractionFailed, Err: err}
	}

	baseName := spec.Table
	if baseName == "" {
		baseName = "query"
	}
	byFormat := p.Exporter.Export(result, baseName, formats, nil)
	artifacts := make([]model.ExportArtifact, 0, len(byFormat))
	for _, f := range formats {
		if a, ok := byFormat[f]; ok {
			artifacts = append(artifacts, a)
		}
	}
	return artifacts, nil
}

// CopyAllTables copies every table visible at the source, minus exclusions.
// One table's failure is recorded and never aborts the batch; the result map
// has exactly one entry per attempted table.
func (p *Pipeline) CopyAllTables(ctx context.Context, sourceName, destName string, exclude map[string]bool) (map[string]model.TableResult, error) {
	src, err := p.Registry.Get(sourceName, model.RoleSource)
	if err != nil {
		return nil, err
	}
	dst, err := p.Registry.Get(destName, model.RoleDestination)
	if err != nil {
		return nil, err
	}

	tables, err := src.Conn.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables at %q: %w", sourceName, err)
	}

	results := make(map[string]model.TableResult, len(tables))

	for _, table := range tables {
		if exclude[table] {
			continue
		}
		res, err := Copy(ctx, model.TableSpec{Table: table}, src.Conn, dst.Conn, p.ExistsPolicy)
		if err != nil {
			fmt.Printf("❌ Copy failed for %s: %v\n", table, err)
			results[table] = model.TableResult{Table: table, Error: err.Error()}
			continue
		}
		results[table] = model.TableResult{
			Table:   table,
			Success: !res.Skipped,
			Skipped: res.Skipped,
			Error:   res.SkipReason,
			Rows:    res.RowsWritten,
		}
	}
	return results, nil
}

// ExportAllTables exports every table visible at the source, minus
// exclusions, under the same per-table isolation policy as CopyAllTables.
func (p *Pipeline) ExportAllTables(ctx context.Context, sourceName string, formats []model.Format, exclude map[string]bool) (map[string]model.TableResult, error) {
	src, err := p.Registry.Get(sourceName, model.RoleSource)
	if err != nil {
		return nil, err
	}

	tables, err := src.Conn.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables at %q: %w", sourceName, err)
	}

	results := make(map[string]model.TableResult, len(tables))

	for _, table := range tables {
		if exclude[table] {
			continue
		}
		artifacts, err := p.ExportTableToFiles(ctx, sourceName, model.TableSpec{Table: table}, formats)
		if err != nil {
			fmt.Printf("❌ Export failed for %s: %v\n", table, err)
			results[table] = model.TableResult{Table: table, Error: err.Error()}
			continue
		}
		res := model.TableResult{
			Table:     table,
			Success:   true,
			Artifacts: artifacts,
		}
		if len(artifacts) > 0 {
			res.Rows = int64(artifacts[0].RecordCount)
		}
		results[table] = res
	}
	return results, nil
}
