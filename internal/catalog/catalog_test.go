package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "groups.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingSourceIsEmpty(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "nope.json"), "")
	groups, err := c.Load("")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestLoadMalformedSourceDegrades(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), `{"not":"a list"`)
	c := New(path, "")
	groups, err := c.Load("")
	assert.Empty(t, groups)

	var catErr *Error
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, path, catErr.Path)
}

func TestLoadOrdersByPriority(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), `[
		{"link": "t.me/low_jobs", "category": "jobs", "priority": "low"},
		{"link": "https://t.me/hot_jobs", "category": "jobs", "priority": "high"},
		{"link": "mid_jobs", "category": "jobs", "priority": "medium"},
		{"link": "mystery", "category": "jobs", "priority": "whenever"}
	]`)
	c := New(path, "")
	groups, err := c.Load("")
	require.NoError(t, err)
	require.Len(t, groups, 4)

	assert.Equal(t, "hot_jobs", groups[0].Link)
	assert.Equal(t, "mid_jobs", groups[1].Link)
	assert.Equal(t, "low_jobs", groups[2].Link)
	assert.Equal(t, "mystery", groups[3].Link)
}

func TestLoadDedupesKeepingHighestPriority(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), `[
		{"link": "https://t.me/devjobs", "category": "jobs", "priority": "low"},
		{"link": "devjobs", "category": "jobs", "priority": "high"},
		{"link": "t.me/devjobs", "category": "jobs", "priority": "medium"}
	]`)
	c := New(path, "")
	groups, err := c.Load("")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, PriorityHigh, groups[0].Priority)
}

func TestLoadCategoryFilter(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), `[
		{"link": "devjobs", "category": "jobs", "priority": "high"},
		{"link": "catpics", "category": "fun", "priority": "high"}
	]`)
	c := New(path, "")
	groups, err := c.Load("Jobs")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "devjobs", groups[0].Link)
}

func TestLoadFallsBackToDataDirCopy(t *testing.T) {
	dataDir := t.TempDir()
	writeCatalog(t, dataDir, `[{"link": "fallback_jobs", "category": "jobs"}]`)

	c := New(filepath.Join(t.TempDir(), "groups.json"), dataDir)
	groups, err := c.Load("")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "fallback_jobs", groups[0].Link)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "devjobs", Normalize("https://t.me/devjobs"))
	assert.Equal(t, "+AbCdEf", Normalize("t.me/+AbCdEf"))
	assert.Equal(t, "joinchat/XyZ", Normalize("https://telegram.me/joinchat/XyZ"))
	assert.Equal(t, "plain", Normalize("  plain "))
}
