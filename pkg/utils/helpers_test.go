package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	t.Run("parses valid duration", func(t *testing.T) {
		assert.Equal(t, 5*time.Minute, ParseDuration("5m", time.Second))
	})

	t.Run("falls back on empty string", func(t *testing.T) {
		assert.Equal(t, time.Second, ParseDuration("", time.Second))
	})

	t.Run("falls back on garbage", func(t *testing.T) {
		assert.Equal(t, 42*time.Second, ParseDuration("banana", 42*time.Second))
	})
}

func TestParseValue(t *testing.T) {
	t.Run("prefers int over float", func(t *testing.T) {
		assert.Equal(t, int64(42), ParseValue("42"))
	})

	t.Run("parses float", func(t *testing.T) {
		assert.Equal(t, 3.14, ParseValue("3.14"))
	})

	t.Run("parses bool", func(t *testing.T) {
		assert.Equal(t, true, ParseValue("true"))
	})

	t.Run("falls through to string", func(t *testing.T) {
		assert.Equal(t, "hello", ParseValue(" hello "))
	})
}

func TestAsInt64(t *testing.T) {
	t.Run("accepts native integer types", func(t *testing.T) {
		for _, v := range []interface{}{int(7), int8(7), int16(7), int32(7), int64(7), uint(7), uint32(7), uint64(7)} {
			got, ok := AsInt64(v)
			assert.True(t, ok, "%T should convert", v)
			assert.Equal(t, int64(7), got)
		}
	})

	t.Run("parses numeric text", func(t *testing.T) {
		got, ok := AsInt64("123")
		assert.True(t, ok)
		assert.Equal(t, int64(123), got)

		got, ok = AsInt64([]byte("-9"))
		assert.True(t, ok)
		assert.Equal(t, int64(-9), got)
	})

	t.Run("rejects floats and non-numeric text", func(t *testing.T) {
		_, ok := AsInt64(3.5)
		assert.False(t, ok)
		_, ok = AsInt64("abc")
		assert.False(t, ok)
	})
}

func TestAsFloat64(t *testing.T) {
	t.Run("integers count as floats", func(t *testing.T) {
		got, ok := AsFloat64(int64(4))
		assert.True(t, ok)
		assert.Equal(t, 4.0, got)
	})

	t.Run("accepts float32 and float64", func(t *testing.T) {
		got, ok := AsFloat64(float32(1.5))
		assert.True(t, ok)
		assert.Equal(t, 1.5, got)
	})

	t.Run("rejects booleans", func(t *testing.T) {
		_, ok := AsFloat64(true)
		assert.False(t, ok)
	})
}

func TestAsBool(t *testing.T) {
	t.Run("passes bools through", func(t *testing.T) {
		got, ok := AsBool(true)
		assert.True(t, ok)
		assert.True(t, got)
	})

	t.Run("accepts 0 and 1", func(t *testing.T) {
		got, ok := AsBool(int64(1))
		assert.True(t, ok)
		assert.True(t, got)

		got, ok = AsBool(int64(0))
		assert.True(t, ok)
		assert.False(t, got)
	})

	t.Run("rejects other integers", func(t *testing.T) {
		_, ok := AsBool(int64(2))
		assert.False(t, ok)
	})
}

func TestStringify(t *testing.T) {
	t.Run("nil is empty", func(t *testing.T) {
		assert.Equal(t, "", Stringify(nil))
	})

	t.Run("byte slices come out as text", func(t *testing.T) {
		assert.Equal(t, "hello", Stringify([]byte("hello")))
	})

	t.Run("times use RFC3339 in UTC", func(t *testing.T) {
		ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
		assert.Equal(t, "2024-03-01T12:30:00Z", Stringify(ts))
	})

	t.Run("numbers format plainly", func(t *testing.T) {
		assert.Equal(t, "42", Stringify(int64(42)))
		assert.Equal(t, "3.5", Stringify(3.5))
	})
}
