package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"leadtracker_backend/platform/config"
	"leadtracker_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReturnsSheetErrorsInsteadOfExiting(t *testing.T) {
	var out bytes.Buffer
	missing := filepath.Join(t.TempDir(), "missing.xlsx")

	err := run(context.Background(), &config.Config{}, logger.NewWithWriter("test", io.Discard), missing, true, &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read sheet")
	assert.Empty(t, out.String())
}
