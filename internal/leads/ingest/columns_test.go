package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileSynonyms(t *testing.T) {
	header := []string{" 客户名称 ", "单价(元/㎡)", "平方数（㎡）", "Shipping Fee", "对接人", "跟进记录/备注", "Total", "weird"}

	m, err := Reconcile(header)
	require.NoError(t, err)

	row := []string{"星河装饰", "85", "120", "300", "范秋菊", "聊过", "999"}
	assert.Equal(t, "星河装饰", m.Value(row, ColCustomerName))
	assert.Equal(t, "85", m.Value(row, ColUnitPrice))
	assert.Equal(t, "120", m.Value(row, ColArea))
	assert.Equal(t, "300", m.Value(row, ColShippingFee))
	assert.Equal(t, "范秋菊", m.Value(row, ColOwner))
	assert.Equal(t, "聊过", m.Value(row, ColNote))
	assert.True(t, m.Has(ColTotalAmount))
	assert.False(t, m.Has(ColPhone))
	assert.Equal(t, "", m.Value(row, ColPhone))
	assert.Equal(t, []string{"weird"}, m.Unknown)
}

func TestReconcileFirstColumnWins(t *testing.T) {
	m, err := Reconcile([]string{"name", "customer"})
	require.NoError(t, err)
	assert.Equal(t, "a", m.Value([]string{"a", "b"}, ColCustomerName))
}

func TestReconcileMissingCustomerName(t *testing.T) {
	_, err := Reconcile([]string{"电话", "单价"})

	var recErr *ReconciliationError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, []Column{ColCustomerName}, recErr.Missing)
	assert.Equal(t, "missing required columns: customerName", err.Error())
}

func TestCanonicalHeader(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Customer Name", "customername"},
		{"ＵＮＩＴ＿ＰＲＩＣＥ", "unitprice"},
		{"运费(元)", "运费"},
		{"平方数（㎡）", "平方数"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, canonicalHeader(tc.in), tc.in)
	}
}
