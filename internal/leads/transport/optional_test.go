package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexUnmarshal(t *testing.T) {
	var req UpdateLeadRequest
	require.NoError(t, json.Unmarshal([]byte(`{"unitPrice":"¥1,200","area":35.5,"isConstruction":true,"nextContactDate":null}`), &req))

	assert.Equal(t, FlexOf("¥1,200"), req.UnitPrice)
	assert.Equal(t, FlexOf(35.5), req.Area)
	assert.Equal(t, FlexOf(true), req.IsConstruction)
	assert.True(t, req.NextContactDate.IsNull())
	assert.False(t, req.LastContactDate.Set)
	assert.False(t, req.OwnerID.Set)
}

func TestFlexRejectsObjects(t *testing.T) {
	var req UpdateLeadRequest
	assert.Error(t, json.Unmarshal([]byte(`{"unitPrice":{"x":1}}`), &req))
}

func TestOptionalUUID(t *testing.T) {
	var req UpdateLeadRequest
	require.NoError(t, json.Unmarshal([]byte(`{"ownerId":null}`), &req))
	assert.True(t, req.OwnerID.Set)
	assert.Nil(t, req.OwnerID.Value)

	assert.Error(t, json.Unmarshal([]byte(`{"ownerId":"nope"}`), &req))
}
