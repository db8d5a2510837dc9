package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBodySingleObject(t *testing.T) {
	recs, err := ParseBody([]byte(`{"DATA_SOURCE":"TEST","RECORD_ID":"1"}`))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "TEST", recs[0].DataSource())
}

func TestParseBodyArray(t *testing.T) {
	recs, err := ParseBody([]byte(`[{"RECORD_ID":"1"},{"RECORD_ID":"2"}]`))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0].RecordID())
	assert.Equal(t, "2", recs[1].RecordID())
}

func TestParseBodyRejectsScalar(t *testing.T) {
	_, err := ParseBody([]byte(`"just a string"`))
	assert.Error(t, err)
}

func TestParseBodyRejectsMalformedJSON(t *testing.T) {
	_, err := ParseBody([]byte(`{not json`))
	assert.Error(t, err)
}

func TestApplyDefaultsDoesNotOverwrite(t *testing.T) {
	rec := Record{KeyDataSource: "EXPLICIT"}
	rec.ApplyDefaults("DEFAULT", "PERSON")
	assert.Equal(t, "EXPLICIT", rec.DataSource())
	assert.Equal(t, "PERSON", rec[KeyEntityType])
}

func TestRecordIDCoercesNonString(t *testing.T) {
	rec := Record{KeyRecordID: 12345.0}
	assert.Equal(t, "12345", rec.RecordID())
}

func TestExtractDirectiveRemovesKey(t *testing.T) {
	rec := Record{"senzingStreamLoader": map[string]any{"action": "deleteRecord"}, KeyRecordID: "1"}
	raw, ok := rec.ExtractDirective(DefaultDirectiveKey)
	require.True(t, ok)
	assert.NotContains(t, rec, DefaultDirectiveKey)

	action, ok := ParseDirective(raw)
	require.True(t, ok)
	assert.Equal(t, ActionDeleteRecord, action)
}

func TestParseDirectiveRejectsUnknownAction(t *testing.T) {
	_, ok := ParseDirective(map[string]any{"action": "explodeRecord"})
	assert.False(t, ok)
}

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	rec := Record{"z": 1, "a": 2}
	out, err := rec.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"z":1}`, string(out))
}
