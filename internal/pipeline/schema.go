package pipeline

import (
	"time"

	"go-db-replicator/internal/model"
	"go-db-replicator/pkg/utils"
)

// InferSchema derives a nullable primitive type per column. A column whose
// non-null values are all integers infers long even when nulls are present;
// mixed int/float infers double; all-bool infers boolean; everything else,
// including null-only columns, infers string.
func InferSchema(result *model.TabularResult) *model.SchemaDescriptor {
	desc := &model.SchemaDescriptor{
		Fields: make([]model.SchemaField, len(result.Columns)),
	}

	for c, name := range result.Columns {
		allLong, allDouble, allBool := true, true, true
		sawValue := false

		for _, row := range result.Rows {
			v := row[c]
			if v == nil {
				continue
			}
			sawValue = true
			if _, isBool := v.(bool); isBool {
				// bools are not numbers
				allLong, allDouble = false, false
				continue
			}
			allBool = false
			if _, ok := rawInt64(v); !ok {
				allLong = false
			}
			if _, ok := rawFloat64(v); !ok {
				allDouble = false
			}
		}

		fieldType := model.FieldString
		if sawValue {
			switch {
			case allLong:
				fieldType = model.FieldLong
			case allDouble:
				fieldType = model.FieldDouble
			case allBool:
				fieldType = model.FieldBoolean
			}
		}
		desc.Fields[c] = model.SchemaField{Name: name, Type: fieldType}
	}
	return desc
}

// rawInt64 accepts only values that are natively integral; strings do not
// silently become numbers during inference.
func rawInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int, int8, int16, int32, int64, uint, uint32, uint64:
		return valToInt64(val), true
	default:
		return 0, false
	}
}

func valToInt64(v interface{}) int64 {
	i, _ := utils.AsInt64(v)
	return i
}

func rawFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	default:
		if i, ok := rawInt64(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}

// coerceCell converts a cell to its column's primitive. Values that do not
// natively fit a string column are stringified rather than dropped; a misfit
// against a typed column is reported so the whole format can fail cleanly.
func coerceCell(v interface{}, fieldType model.FieldType) (interface{}, bool) {
	if v == nil {
		return nil, true
	}
	switch fieldType {
	case model.FieldLong:
		if i, ok := utils.AsInt64(v); ok {
			return i, true
		}
		return nil, false
	case model.FieldDouble:
		if f, ok := utils.AsFloat64(v); ok {
			return f, true
		}
		return nil, false
	case model.FieldBoolean:
		if b, ok := utils.AsBool(v); ok {
			return b, true
		}
		return nil, false
	default:
		return utils.Stringify(v), true
	}
}

// nativeParquetType maps a column's native values to a parquet physical type,
// picked from the first non-nil value.
func nativeParquetType(result *model.TabularResult, col int) string {
	for _, row := range result.Rows {
		switch row[col].(type) {
		case nil:
			continue
		case int, int32, int64:
			return "INT64"
		case float32, float64:
			return "DOUBLE"
		case bool:
			return "BOOLEAN"
		case time.Time, string, []byte:
			return "BYTE_ARRAY"
		default:
			return "BYTE_ARRAY"
		}
	}
	return "BYTE_ARRAY"
}
