package refdata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCUE(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDefault(t *testing.T) {
	ds, err := Default()
	require.NoError(t, err)

	byISO := make(map[string]Country)
	for _, c := range ds.Countries {
		byISO[c.ISOCode] = c
	}

	us, ok := byISO["US"]
	require.True(t, ok)
	assert.Equal(t, int64(1228), us.ID)

	var california *State
	for i := range us.States {
		if us.States[i].Abbreviation == "CA" {
			california = &us.States[i]
		}
	}
	require.NotNil(t, california)
	assert.Equal(t, int64(1004), california.ID)
	assert.Equal(t, "California", california.Name)

	gb, ok := byISO["GB"]
	require.True(t, ok)
	assert.Empty(t, gb.States, "states default to an empty list")

	assert.Greater(t, ds.StateCount(), 10)
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "nz.cue", `
countries: [{
	id:       1154
	iso_code: "NZ"
	name:     "New Zealand"
	states: [{id: 4000, abbreviation: "AUK", name: "Auckland"}]
}]
`)

	ds, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, ds.Countries, 1)
	assert.Equal(t, "NZ", ds.Countries[0].ISOCode)
	assert.Equal(t, "Auckland", ds.Countries[0].States[0].Name)
}

func TestLoad_RejectsBadISOCode(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "bad.cue", `
countries: [{
	id:       1
	iso_code: "usa"
	name:     "Nowhere"
}]
`)

	_, err := Load(dir)
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeInvalid, le.Code)
}

func TestLoad_RejectsDuplicateState(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "dup.cue", `
countries: [{
	id:       1
	iso_code: "XX"
	name:     "Duplicates"
	states: [
		{id: 10, abbreviation: "AA", name: "First"},
		{id: 11, abbreviation: "AA", name: "Second"},
	]
}]
`)

	_, err := Load(dir)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeDuplicateID, le.Code)
	assert.Contains(t, le.Message, "duplicate state AA")
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestLoad_EmptyDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNoFiles, le.Code)
}

func TestDataset_ValidateDuplicateCountry(t *testing.T) {
	ds := &Dataset{Countries: []Country{
		{ID: 1, ISOCode: "AA", Name: "A"},
		{ID: 1, ISOCode: "BB", Name: "B"},
	}}
	err := ds.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate country id 1")
}

func TestLoadError_Format(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "nothing here"}
	assert.Equal(t, "E202: nothing here", err.Error())
}
