package reporting

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/org/intent-fuzzer/pkg/intent"
	"github.com/org/intent-fuzzer/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Output: &bytes.Buffer{}})
}

func sampleInput() *intent.IntentInput {
	return &intent.IntentInput{
		ReceiverType:     intent.ReceiverActivity,
		ComponentPackage: "com.example.app",
		ComponentClass:   ".MainActivity",
		Action:           "android.intent.action.VIEW",
		MimeType:         intent.MimeTextPlain,
	}
}

func TestSaveAndLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, testLogger())
	require.NoError(t, err)

	in := sampleInput()
	path, err := s.Save(in)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, in.Hash()+".json"), path)

	loaded, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, in.Action, loaded.Action)
	assert.Equal(t, in.ComponentPackage, loaded.ComponentPackage)
}

func TestSaveIsIdempotentForIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, testLogger())
	require.NoError(t, err)

	in := sampleInput()
	path1, err := s.Save(in)
	require.NoError(t, err)
	path2, err := s.Save(in)
	require.NoError(t, err)
	assert.Equal(t, path1, path2)

	entries, err := s.LoadAll()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadAllSkipsUnparsableEntries(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, testLogger())
	require.NoError(t, err)

	_, err = s.Save(sampleInput())
	require.NoError(t, err)

	badPath := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(badPath, []byte("not json"), 0o644))

	entries, err := s.LoadAll()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
