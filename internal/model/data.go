package model

import "time"

// TabularResult is an ordered set of named columns plus rows produced by a
// query. Every row shares the column order.
type TabularResult struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// RowCount returns the number of data rows.
func (r *TabularResult) RowCount() int {
	return len(r.Rows)
}

// RowMap returns row i keyed by column name.
func (r *TabularResult) RowMap(i int) map[string]interface{} {
	m := make(map[string]interface{}, len(r.Columns))
	for c, name := range r.Columns {
		m[name] = r.Rows[i][c]
	}
	return m
}

// Format enumerates the supported export serializations.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatAvro    Format = "avro"
)

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	return string(f)
}

// FieldType is the nullable primitive type of an exported column.
type FieldType string

const (
	FieldLong    FieldType = "long"
	FieldDouble  FieldType = "double"
	FieldBoolean FieldType = "boolean"
	FieldString  FieldType = "string"
)

// SchemaField maps one column to its nullable primitive type.
type SchemaField struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// SchemaDescriptor describes every column of a result, in column order.
type SchemaDescriptor struct {
	Fields []SchemaField `json:"fields"`
}

// ExportJob is the ephemeral input of one export invocation.
// GeneratedAt stamps every artifact filename of the invocation.
type ExportJob struct {
	BaseName    string         `json:"base_name"`
	Result      *TabularResult `json:"-"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// ExportArtifact is one (format, file) pair produced from an ExportJob.
type ExportArtifact struct {
	Format      Format    `json:"format"`
	Path        string    `json:"path"`
	RecordCount int       `json:"record_count"`
	ExportedAt  time.Time `json:"exported_at"`
}

// CopyResult reports one table copy.
type CopyResult struct {
	Table        string `json:"table"`
	RowsRead     int64  `json:"rows_read"`
	RowsWritten  int64  `json:"rows_written"`
	Skipped      bool   `json:"skipped,omitempty"` // MinRows gate not met
	SkipReason   string `json:"skip_reason,omitempty"`
}

// TableResult is one entry of a batch operation's result map. Batch
// operations always produce one TableResult per attempted table.
type TableResult struct {
	Table     string           `json:"table"`
	Success   bool             `json:"success"`
	Skipped   bool             `json:"skipped,omitempty"`
	Error     string           `json:"error,omitempty"`
	Rows      int64            `json:"rows,omitempty"`
	Artifacts []ExportArtifact `json:"artifacts,omitempty"`
}
