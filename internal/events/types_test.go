package events

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEvents_SortedByName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	content := `
"Gulf War": "1990-08-02"
"COVID-19 Pandemic": "2020-03-11"
"OPEC Production Cut": "2016-11-30"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	evs, err := LoadEvents(path)
	require.NoError(t, err)
	require.Len(t, evs, 3)

	assert.Equal(t, "COVID-19 Pandemic", evs[0].Name)
	assert.Equal(t, "Gulf War", evs[1].Name)
	assert.Equal(t, "OPEC Production Cut", evs[2].Name)
	assert.Equal(t, day(1990, 8, 2), evs[1].Date)
}

func TestLoadEvents_BadDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`"Some Event": "not a date"`), 0644))

	_, err := LoadEvents(path)
	assert.Error(t, err)
}

func TestLoadEvents_FileMissing(t *testing.T) {
	_, err := LoadEvents(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOptionalFloat_JSON(t *testing.T) {
	record := ImpactRecord{
		Event:    "Test",
		Change1M: Some(10.5),
		// Change3M left absent
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"change_1m":10.5`)
	assert.Contains(t, string(data), `"change_3m":null`)
}
