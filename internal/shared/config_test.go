package shared_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_dashboard/internal/shared"
)

// chdir moves into dir for the test so Load does not pick up a real .env.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CACHE_TTL_SECONDS", "60")
	t.Setenv("INGEST_WORKERS", "nope")
	t.Setenv("REDIS_ADDR", "")

	c := shared.Load()
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, time.Minute, c.CacheTTL)
	assert.Equal(t, 4, c.Workers)
	assert.Empty(t, c.RedisAddr)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STORAGE_DRIVER=memory\n"), 0o600))
	chdir(t, dir)
	t.Setenv("STORAGE_DRIVER", "")
	os.Unsetenv("STORAGE_DRIVER")

	c := shared.Load()
	assert.Equal(t, "memory", c.StorageDriver)
}

func TestLoadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
hostaway:
  listingIds: ["prop_123", "prop_124"]
  limit: 100
places:
  - placeId: ChIJ1
    propertyId: prop_123
    propertyName: Modern Downtown Loft
`), 0o600))

	s, err := shared.LoadSources(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"prop_123", "prop_124"}, s.Hostaway.ListingIDs)
	assert.Equal(t, 100, s.Hostaway.Limit)
	require.Len(t, s.Places, 1)
	assert.Equal(t, "Modern Downtown Loft", s.Places[0].PropertyName)
}

func TestLoadSources_MissingFileIsEmpty(t *testing.T) {
	s, err := shared.LoadSources(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, s.Places)
}

func TestLoadSources_RequiresPlaceID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte("places:\n  - propertyId: p\n"), 0o600))
	_, err := shared.LoadSources(path)
	assert.Error(t, err)
}
