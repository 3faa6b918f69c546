package database

import (
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentModels_ParentsFirst(t *testing.T) {
	names := make([]string, 0)
	for _, m := range PersistentModels() {
		names = append(names, typeName(m))
	}
	require.Len(t, names, 5)
	assert.Equal(t, "*models.Profile", names[0])
	assert.Less(t, indexOf(names, "*models.Post"), indexOf(names, "*models.Comment"))
	assert.Less(t, indexOf(names, "*models.Post"), indexOf(names, "*models.Reaction"))
}

func TestRegisteredMigrations(t *testing.T) {
	ms := GetMigrations()
	require.NotEmpty(t, ms)
	assert.Equal(t, 1, ms[0].Version)
	assert.Equal(t, "000001_init_schema", ms[0].String())
	assert.Contains(t, ms[0].UpScript, "idx_post_reactions_post_user")
	assert.Contains(t, ms[0].DownScript, "DROP TABLE IF EXISTS post_reactions")
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestValidateAppliedVersions(t *testing.T) {
	assert.NoError(t, validateAppliedVersions(nil, GetMigrations()))
	assert.NoError(t, validateAppliedVersions([]int{1}, GetMigrations()))
	assert.ErrorContains(t, validateAppliedVersions([]int{1, 42}, GetMigrations()), "000042")
}

func typeName(v interface{}) string {
	return fmt.Sprintf("%T", v)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestLoadMigrations(t *testing.T) {
	valid := fstest.MapFS{
		"m/000002_add_index.up.sql":   {Data: []byte("CREATE INDEX x ON posts (id);")},
		"m/000002_add_index.down.sql": {Data: []byte("DROP INDEX x;")},
		"m/000001_init.up.sql":        {Data: []byte("CREATE TABLE a (id int);")},
		"m/000001_init.down.sql":      {Data: []byte("DROP TABLE a;")},
		"m/README.md":                 {Data: []byte("notes")},
	}
	ms, err := LoadMigrations(valid, "m")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "000001_init", ms[0].String())
	assert.Equal(t, "DROP INDEX x;", ms[1].DownScript)

	_, err = LoadMigrations(fstest.MapFS{
		"m/000001_init.up.sql": {Data: []byte("CREATE TABLE a (id int);")},
	}, "m")
	assert.ErrorContains(t, err, "000001_init.down.sql")

	_, err = LoadMigrations(fstest.MapFS{
		"m/1_a.up.sql":    {Data: []byte("x")},
		"m/1_a.down.sql":  {Data: []byte("x")},
		"m/01_b.up.sql":   {Data: []byte("x")},
		"m/01_b.down.sql": {Data: []byte("x")},
	}, "m")
	assert.ErrorContains(t, err, "000001 used by")
}
