package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	seed := map[string]any{"defaultPrinterTab": "toner"}
	m := NewMemoryStore(seed)
	seed["defaultPrinterTab"] = "mutated"

	v, ok, err := m.Get("defaultPrinterTab")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "toner", v)

	_, ok, err = m.Get("copiedTicketIds")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set("copiedTicketIds", []any{"t1"}))
	v, ok, _ = m.Get("copiedTicketIds")
	assert.True(t, ok)
	assert.Equal(t, []any{"t1"}, v)
}

func TestFileStore_MissingFile(t *testing.T) {
	f := NewFileStore(filepath.Join(t.TempDir(), "nested", "prefs.json"))

	_, ok, err := f.Get("lastReportSelection")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_SetPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")
	f := NewFileStore(path)

	require.NoError(t, f.Set("lastReportSelection", []any{"printers", "orders"}))
	require.NoError(t, f.Set("printerViewMode", "grid"))

	reopened := NewFileStore(path)
	v, ok, err := reopened.Get("lastReportSelection")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []any{"printers", "orders"}, v)

	v, _, _ = reopened.Get("printerViewMode")
	assert.Equal(t, "grid", v)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_NumbersKeepPrecision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pageSize": 25}`), 0644))

	v, ok, err := NewFileStore(path).Get("pageSize")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, json.Number("25"), v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))

	_, _, err := NewFileStore(path).Get("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse preferences")

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0644))
	_, ok, err := NewFileStore(empty).Get("x")
	require.NoError(t, err)
	assert.False(t, ok)
}
