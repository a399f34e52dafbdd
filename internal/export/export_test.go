package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVAppenderWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "messages.csv")
	a := NewCSVAppender(path, []string{"id", "text"})

	require.NoError(t, a.Append([]string{"1", "first"}))
	require.NoError(t, a.Append([]string{"2", "second"}, []string{"3", "third"}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"id", "text"}, rows[0])
	assert.Equal(t, []string{"3", "third"}, rows[3])
}

func TestCSVAppenderEmptyIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.csv")
	require.NoError(t, NewCSVAppender(path, []string{"id"}).Append())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no file until there is a row to write")
}

func TestCleanCell(t *testing.T) {
	assert.Equal(t, "one line now", CleanCell("one\nline\r\nnow"))
	assert.Equal(t, "plain", CleanCell("plain"))
}

func TestSnapshotWriterReplacesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snaps")
	w := NewSnapshotWriter(dir)

	require.NoError(t, w.Write("devjobs", []string{"a"}))
	require.NoError(t, w.Write("devjobs", []string{"a", "b"}))

	data, err := os.ReadFile(filepath.Join(dir, "devjobs.json"))
	require.NoError(t, err)
	var got []string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestSnapshotWriterSanitizesNames(t *testing.T) {
	dir := t.TempDir()
	w := NewSnapshotWriter(dir)

	require.NoError(t, w.Write("+InviteHash", map[string]int{"n": 1}))
	require.NoError(t, w.Write("joinchat/XyZ", map[string]int{"n": 2}))

	_, err := os.Stat(filepath.Join(dir, "_InviteHash.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "joinchat_XyZ.json"))
	assert.NoError(t, err)
}
