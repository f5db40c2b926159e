package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vesta.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadFillsDefaultsForOmittedFields(t *testing.T) {
	path := writeTemp(t, `host_port = "repo.example:8000"`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "repo.example:8000", cfg.HostPort)
	assert.Equal(t, time.Hour, time.Duration(cfg.RecoverySleep))
	assert.Equal(t, int64(128*1024), cfg.ReplicationChunkSize)
}

func TestLoadParsesDurationAndOverrides(t *testing.T) {
	path := writeTemp(t, `
host_port = "repo.example:8000"
master_hint = "master.example:9000"
recovery_sleep = "90s"
replication_chunk_size = 4096
store_path = "/tmp/vesta-test.db"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "master.example:9000", cfg.MasterHint)
	assert.Equal(t, 90*time.Second, time.Duration(cfg.RecoverySleep))
	assert.Equal(t, int64(4096), cfg.ReplicationChunkSize)
	assert.Equal(t, "/tmp/vesta-test.db", cfg.StorePath)
}

func TestLoadRequiresHostPort(t *testing.T) {
	path := writeTemp(t, `master_hint = "x"`)
	_, err := Load(path)
	assert.Error(t, err)
}
