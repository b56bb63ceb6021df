package migrate

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Embedded(t *testing.T) {
	got, err := load(migrationsFS)

	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, 1, got[0].version)
	assert.Contains(t, got[0].body, "CREATE TABLE IF NOT EXISTS worklogs")
}

func TestLoad_NumericOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/10_late.sql":  {Data: []byte("SELECT 10;")},
		"sql/2_early.sql":  {Data: []byte("SELECT 2;")},
		"sql/0001_one.sql": {Data: []byte("SELECT 1;")},
	}

	got, err := load(fsys)

	require.NoError(t, err)
	var versions []int
	for _, m := range got {
		versions = append(versions, m.version)
	}
	assert.Equal(t, []int{1, 2, 10}, versions)
}

func TestLoad_Rejects(t *testing.T) {
	_, err := load(fstest.MapFS{"sql/nover.sql": {Data: []byte("")}})
	assert.Error(t, err)

	_, err = load(fstest.MapFS{
		"sql/0001_a.sql": {Data: []byte("")},
		"sql/1_b.sql":    {Data: []byte("")},
	})
	assert.ErrorContains(t, err, "share version")
}

func TestPending(t *testing.T) {
	all := []migration{{version: 1}, {version: 2}, {version: 3}}

	got := pending(all, map[int]bool{1: true, 3: true})

	assert.Equal(t, []migration{{version: 2}}, got)
}
