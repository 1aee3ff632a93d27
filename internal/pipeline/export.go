package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"go-db-replicator/internal/model"
	"go-db-replicator/pkg/utils"

	"github.com/hamba/avro/v2/ocf"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// Exporter materializes tabular results into serialized file artifacts.
// It performs no store I/O.
type Exporter struct {
	Output *utils.OutputManager
}

// NewExporter creates an exporter writing under outputDir.
func NewExporter(outputDir string) *Exporter {
	return &Exporter{Output: utils.NewOutputManager(outputDir)}
}

// Export attempts every requested format independently. Failures are logged
// and skipped; the returned map holds exactly the formats that succeeded.
// One timestamp is generated per invocation so sibling artifacts share a
// filename suffix. A nil schema is inferred when the avro format needs one.
func (e *Exporter) Export(result *model.TabularResult, baseName string, formats []model.Format, schema *model.SchemaDescriptor) map[model.Format]model.ExportArtifact {
	job := model.ExportJob{
		BaseName:    baseName,
		Result:      result,
		GeneratedAt: time.Now().UTC(),
	}

	artifacts := make(map[model.Format]model.ExportArtifact, len(formats))
	seen := make(map[model.Format]bool, len(formats))
	for _, f := range formats {
		if seen[f] {
			continue
		}
		seen[f] = true

		artifact, err := e.exportFormat(job, f, schema)
		if err != nil {
			fmt.Printf("❌ Export %s failed for %s: %v\n", f, baseName, err)
			continue
		}
		artifacts[f] = artifact
		fmt.Printf("✅ Exported %d records to %s\n", artifact.RecordCount, artifact.Path)
	}
	return artifacts
}

func (e *Exporter) exportFormat(job model.ExportJob, f model.Format, schema *model.SchemaDescriptor) (model.ExportArtifact, error) {
	if err := e.Output.EnsureOutputDirExists(); err != nil {
		return model.ExportArtifact{}, &model.ExportError{Format: f, Reason: model.ReasonEncodingFailed, Err: err}
	}
	path := e.Output.ArtifactPath(job.BaseName, f.Ext(), job.GeneratedAt)

	var err error
	switch f {
	case model.FormatCSV:
		err = writeCSV(path, job.Result)
	case model.FormatParquet:
		err = writeParquet(path, job.Result)
	case model.FormatAvro:
		if schema == nil {
			schema = InferSchema(job.Result)
		}
		err = writeAvro(path, job.BaseName, job.Result, schema)
	default:
		return model.ExportArtifact{}, &model.ExportError{Format: f, Reason: model.ReasonUnsupportedFormat}
	}

	if err != nil {
		// a partial file is worse than no file
		os.Remove(path)
		return model.ExportArtifact{}, &model.ExportError{Format: f, Reason: model.ReasonEncodingFailed, Err: err}
	}

	return model.ExportArtifact{
		Format:      f,
		Path:        path,
		RecordCount: job.Result.RowCount(),
		ExportedAt:  job.GeneratedAt,
	}, nil
}

// ------------------- CSV -------------------

func writeCSV(path string, result *model.TabularResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write(result.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(result.Columns))
	for _, values := range result.Rows {
		for i, v := range values {
			row[i] = utils.Stringify(v)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// ------------------- Parquet -------------------

func writeParquet(path string, result *model.TabularResult) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	physical := make([]string, len(result.Columns))
	for i := range result.Columns {
		physical[i] = nativeParquetType(result, i)
	}

	pw, err := writer.NewJSONWriter(buildParquetSchema(result.Columns, physical), fw, 4)
	if err != nil {
		fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for r := range result.Rows {
		row := make(map[string]interface{}, len(result.Columns))
		for c, name := range result.Columns {
			v := result.Rows[r][c]
			if v != nil && physical[c] == "BYTE_ARRAY" {
				v = utils.Stringify(v)
			}
			row[name] = v
		}
		b, err := json.Marshal(row)
		if err != nil {
			_ = pw.WriteStop()
			fw.Close()
			return err
		}
		if err := pw.Write(string(b)); err != nil {
			_ = pw.WriteStop()
			fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}

func buildParquetSchema(columns []string, physical []string) string {
	fields := make([]map[string]string, 0, len(columns))
	for i, name := range columns {
		fields = append(fields, map[string]string{
			"Tag": fmt.Sprintf("name=%s, type=%s, repetitiontype=OPTIONAL", name, physical[i]),
		})
	}
	out := map[string]interface{}{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

// ------------------- Avro -------------------

var avroNameRe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// avroName maps an arbitrary identifier onto the avro name grammar.
// The schema and the encoded records must agree on it, otherwise hamba
// falls back to each field's null default and the column vanishes.
func avroName(s string) string {
	name := avroNameRe.ReplaceAllString(s, "_")
	if name == "" || name[0] >= '0' && name[0] <= '9' {
		name = "r_" + name
	}
	return name
}

func writeAvro(path, baseName string, result *model.TabularResult, schema *model.SchemaDescriptor) error {
	if len(schema.Fields) != len(result.Columns) {
		return fmt.Errorf("schema has %d fields for %d columns", len(schema.Fields), len(result.Columns))
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	enc, err := ocf.NewEncoder(buildAvroSchema(baseName, schema), file)
	if err != nil {
		return err
	}

	for r := range result.Rows {
		record := make(map[string]interface{}, len(schema.Fields))
		for c, field := range schema.Fields {
			v, ok := coerceCell(result.Rows[r][c], field.Type)
			if !ok {
				return fmt.Errorf("row %d: value %v does not fit %s column %q",
					r, result.Rows[r][c], field.Type, field.Name)
			}
			record[avroName(field.Name)] = nullableValue(v, field.Type)
		}
		if err := enc.Encode(record); err != nil {
			return err
		}
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

// nullableValue wraps a coerced cell for the ["null", primitive] union.
func nullableValue(v interface{}, fieldType model.FieldType) interface{} {
	if v == nil {
		return nil
	}
	return map[string]interface{}{string(fieldType): v}
}

func buildAvroSchema(baseName string, schema *model.SchemaDescriptor) string {
	fields := make([]map[string]interface{}, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		fields = append(fields, map[string]interface{}{
			"name":    avroName(f.Name),
			"type":    []string{"null", string(f.Type)},
			"default": nil,
		})
	}
	out := map[string]interface{}{
		"type":   "record",
		"name":   avroName(baseName),
		"fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

// FormatsFromStrings parses a format list, rejecting unknown names.
func FormatsFromStrings(names []string) ([]model.Format, error) {
	formats := make([]model.Format, 0, len(names))
	for _, n := range names {
		switch f := model.Format(strings.ToLower(strings.TrimSpace(n))); f {
		case model.FormatCSV, model.FormatParquet, model.FormatAvro:
			formats = append(formats, f)
		default:
			return nil, &model.ExportError{Format: model.Format(n), Reason: model.ReasonUnsupportedFormat}
		}
	}
	return formats, nil
}
