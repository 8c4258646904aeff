package normalize

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney(t *testing.T) {
	cases := []struct {
		in      any
		want    float64
		coerced bool
	}{
		{nil, 0, false},
		{"", 0, false},
		{"nan", 0, true},
		{"¥1,200", 1200, true},
		{"1200.00", 1200, false},
		{"￥３,５００元", 3500, true},
		{"12.345", 12.35, false},
		{"-5", 0, true},
		{"abc", 0, true},
		{math.NaN(), 0, true},
		{math.Inf(1), 0, true},
		{"1e400", 0, true},
		{"9e308", 0, true},
		{"1e13", 0, true},
		{"¥1e13", 0, true},
		{"999999999999.99", 999999999999.99, false},
		{1e13, 0, true},
		{42, 42, false},
		{18.5, 18.5, false},
	}
	for _, tc := range cases {
		got, coerced := Money(tc.in)
		assert.Equal(t, tc.want, got, "input %#v", tc.in)
		assert.Equal(t, tc.coerced, coerced, "input %#v", tc.in)
	}
}

func TestDate(t *testing.T) {
	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	for _, in := range []any{"2024-03-05", "2024/3/5", "2024.03.05", "2024年3月5日", "20240305", "２０２４-０３-０５", 45356.0, "45356", time.Date(2024, 3, 5, 17, 4, 0, 0, time.UTC)} {
		got, coerced := Date(in, DateFallbackNone, today)
		require.NotNil(t, got, "input %#v", in)
		assert.Equal(t, want, *got, "input %#v", in)
		assert.False(t, coerced, "input %#v", in)
	}
}

func TestDateFallbacks(t *testing.T) {
	today := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

	got, coerced := Date("someday", DateFallbackNone, today)
	assert.Nil(t, got)
	assert.True(t, coerced)

	got, coerced = Date("someday", DateFallbackToday, today)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), *got)
	assert.True(t, coerced)

	got, coerced = Date("", DateFallbackToday, today)
	require.NotNil(t, got)
	assert.False(t, coerced)

	got, coerced = Date(nil, DateFallbackNone, today)
	assert.Nil(t, got)
	assert.False(t, coerced)
}

func TestText(t *testing.T) {
	assert.Equal(t, "王 先生", Text("  王  先生 "))
	assert.Equal(t, "", Text("nan"))
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "13800138000", Text(13800138000.0))
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, NameKey("ACME  Trading"), NameKey("acme trading"))
	assert.Equal(t, NameKey("ＡＣＭＥ"), NameKey("acme"))
	assert.NotEqual(t, NameKey("张三"), NameKey("张四"))
}

func TestPhone(t *testing.T) {
	display, key := Phone("138-0013-8000", "CN")
	assert.Equal(t, "+8613800138000", display)
	assert.Equal(t, "+8613800138000", key)

	display, key = Phone("nan", "CN")
	assert.Empty(t, display)
	assert.Empty(t, key)
}

func TestBool(t *testing.T) {
	for _, in := range []any{"是", "Yes", true, 1.0, "√"} {
		got, coerced := Bool(in)
		assert.True(t, got, "input %#v", in)
		assert.False(t, coerced)
	}
	for _, in := range []any{"否", "no", nil, "", false} {
		got, _ := Bool(in)
		assert.False(t, got, "input %#v", in)
	}
	got, coerced := Bool("maybe")
	assert.False(t, got)
	assert.True(t, coerced)
}

func TestWarningsCollectOnlyCoercions(t *testing.T) {
	var w Warnings
	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	price := w.Money("unitPrice", "¥80")
	area := w.Money("area", "12")
	next := w.Date("nextContactDate", "soon", DateFallbackNone, today)
	built := w.Bool("isConstruction", "是")

	assert.Equal(t, 80.0, price)
	assert.Equal(t, 12.0, area)
	assert.Nil(t, next)
	assert.True(t, built)
	assert.Equal(t, []string{"unitPrice", "nextContactDate"}, w.Fields())
	assert.Equal(t, "¥80", w[0].Input)

	var nilWarnings *Warnings
	assert.Equal(t, 5.0, nilWarnings.Money("area", "5m2"))
}
