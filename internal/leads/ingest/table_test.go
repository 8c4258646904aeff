package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSVDropsBOMAndBlankRows(t *testing.T) {
	input := "\ufeff客户名称,电话\n星河装饰,13800138000\n,\n蓝天建材,\n"

	table, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"客户名称", "电话"}, table.Header)
	assert.Equal(t, [][]string{{"星河装饰", "13800138000"}, {"蓝天建材", ""}}, table.Rows)
}

func TestReadCSVAllowsRaggedRows(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("name,phone,area\nAcme\nGlobex,1,2\n"))
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"Acme"}, table.Rows[0])
}

func TestReadEmptyInput(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"客户名称", "单价(元/㎡)", "日期"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"星河装饰", 85.5, "2026-03-01"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	table, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, []string{"客户名称", "单价(元/㎡)", "日期"}, table.Header)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"星河装饰", "85.5", "2026-03-01"}, table.Rows[0])
}
