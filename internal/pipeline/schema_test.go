package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-db-replicator/internal/model"
)

func fieldTypes(desc *model.SchemaDescriptor) []model.FieldType {
	out := make([]model.FieldType, len(desc.Fields))
	for i, f := range desc.Fields {
		out[i] = f.Type
	}
	return out
}

func TestInferSchema(t *testing.T) {
	t.Run("classifies homogeneous columns", func(t *testing.T) {
		result := &model.TabularResult{
			Columns: []string{"id", "price", "active", "name"},
			Rows: [][]interface{}{
				{int64(1), 1.5, true, "a"},
				{int64(2), 2.5, false, "b"},
			},
		}
		desc := InferSchema(result)
		assert.Equal(t, []model.FieldType{
			model.FieldLong, model.FieldDouble, model.FieldBoolean, model.FieldString,
		}, fieldTypes(desc))
	})

	t.Run("nulls do not widen an integer column", func(t *testing.T) {
		result := &model.TabularResult{
			Columns: []string{"id"},
			Rows:    [][]interface{}{{int64(1)}, {nil}, {int64(3)}},
		}
		desc := InferSchema(result)
		assert.Equal(t, model.FieldLong, desc.Fields[0].Type)
	})

	t.Run("mixed int and float settles on double", func(t *testing.T) {
		result := &model.TabularResult{
			Columns: []string{"v"},
			Rows:    [][]interface{}{{int64(1)}, {2.5}},
		}
		desc := InferSchema(result)
		assert.Equal(t, model.FieldDouble, desc.Fields[0].Type)
	})

	t.Run("numeric text stays string", func(t *testing.T) {
		result := &model.TabularResult{
			Columns: []string{"v"},
			Rows:    [][]interface{}{{"1"}, {"2"}},
		}
		desc := InferSchema(result)
		assert.Equal(t, model.FieldString, desc.Fields[0].Type)
	})

	t.Run("bools are not numbers", func(t *testing.T) {
		result := &model.TabularResult{
			Columns: []string{"v"},
			Rows:    [][]interface{}{{true}, {int64(1)}},
		}
		desc := InferSchema(result)
		assert.Equal(t, model.FieldString, desc.Fields[0].Type)
	})

	t.Run("null-only column defaults to string", func(t *testing.T) {
		result := &model.TabularResult{
			Columns: []string{"v"},
			Rows:    [][]interface{}{{nil}, {nil}},
		}
		desc := InferSchema(result)
		assert.Equal(t, model.FieldString, desc.Fields[0].Type)
	})

	t.Run("empty result is all strings", func(t *testing.T) {
		result := &model.TabularResult{Columns: []string{"a", "b"}}
		desc := InferSchema(result)
		assert.Equal(t, []model.FieldType{model.FieldString, model.FieldString}, fieldTypes(desc))
	})
}

func TestCoerceCell(t *testing.T) {
	t.Run("nil passes through for any type", func(t *testing.T) {
		for _, ft := range []model.FieldType{model.FieldLong, model.FieldDouble, model.FieldBoolean, model.FieldString} {
			v, ok := coerceCell(nil, ft)
			require.True(t, ok)
			assert.Nil(t, v)
		}
	})

	t.Run("long accepts integers and rejects text", func(t *testing.T) {
		v, ok := coerceCell(int(7), model.FieldLong)
		require.True(t, ok)
		assert.Equal(t, int64(7), v)

		_, ok = coerceCell("x", model.FieldLong)
		assert.False(t, ok)
	})

	t.Run("double accepts integers", func(t *testing.T) {
		v, ok := coerceCell(int64(3), model.FieldDouble)
		require.True(t, ok)
		assert.Equal(t, 3.0, v)
	})

	t.Run("string column stringifies anything", func(t *testing.T) {
		v, ok := coerceCell(int64(42), model.FieldString)
		require.True(t, ok)
		assert.Equal(t, "42", v)

		ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		v, ok = coerceCell(ts, model.FieldString)
		require.True(t, ok)
		assert.Equal(t, "2024-01-02T03:04:05Z", v)
	})
}

func TestNativeParquetType(t *testing.T) {
	result := &model.TabularResult{
		Columns: []string{"i", "f", "b", "s", "n"},
		Rows: [][]interface{}{
			{nil, nil, nil, nil, nil},
			{int64(1), 1.5, true, "x", nil},
		},
	}
	assert.Equal(t, "INT64", nativeParquetType(result, 0))
	assert.Equal(t, "DOUBLE", nativeParquetType(result, 1))
	assert.Equal(t, "BOOLEAN", nativeParquetType(result, 2))
	assert.Equal(t, "BYTE_ARRAY", nativeParquetType(result, 3))
	assert.Equal(t, "BYTE_ARRAY", nativeParquetType(result, 4))
}
