package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgmesh/pgmesh/pkg/config"
)

const yamlConfig = `
log_level: debug
http_addr: "localhost:7432"
hash_function: city
nodes:
  - host: coordinator.local
    port: 5432
    db: app
    usr: mesh
    passwd: secret
    role: coordinator
  - host: shard0.local
    db: app
    usr: mesh
    role: worker
    shard_id: 0
  - host: replica0.local
    db: app
    usr: mesh
    role: replica
retry:
  max_retries: 5
  initial_backoff_ms: 25
`

const tomlConfig = `
log_level = "info"

[[nodes]]
host = "coordinator.local"
port = 5432
db = "app"
usr = "mesh"
role = "coordinator"

[retry]
max_retries = 7
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYamlConfig(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(config.LoadMeshCfg(writeTemp(t, "mesh.yaml", yamlConfig)))
	cfg := config.MeshConfig()

	assert.Equal("debug", cfg.LogLevel)
	assert.Equal("localhost:7432", cfg.HttpAddr)
	assert.Equal("city", cfg.HashFunction)
	assert.Len(cfg.Nodes, 3)
	assert.Equal(config.RoleWorker, cfg.Nodes[1].Role)
	assert.Equal(0, cfg.Nodes[1].ShardID)

	assert.Equal(uint64(5), cfg.RetryCfg.MaxRetries)
	assert.Equal(25, cfg.RetryCfg.InitialBackoffMs)

	/* unset tunables fall back to defaults */
	assert.Equal(50, cfg.PoolCfg.ConnectionLimit)
	assert.NotZero(cfg.HealthCfg.ProbeIntervalMs)
	assert.NotZero(cfg.TwoPCCfg.CommitRetries)
}

func TestLoadTomlConfig(t *testing.T) {
	assert := assert.New(t)

	var cfg config.Mesh
	path := writeTemp(t, "mesh.toml", tomlConfig)

	assert.NoError(config.LoadMeshCfg(path))
	cfg = *config.MeshConfig()

	assert.Equal("info", cfg.LogLevel)
	assert.Len(cfg.Nodes, 1)
	assert.Equal(uint64(7), cfg.RetryCfg.MaxRetries)
}

func TestLoadUnknownExtensionRejected(t *testing.T) {
	assert := assert.New(t)

	err := config.LoadMeshCfg(writeTemp(t, "mesh.ini", "log_level = info"))
	assert.Error(err)
}

func TestDurationHelpers(t *testing.T) {
	assert := assert.New(t)

	cfg := config.Mesh{}
	cfg.FillDefaults()

	assert.Equal(int64(50), cfg.RetryCfg.InitialBackoff().Milliseconds())
	assert.Equal(int64(5000), cfg.RetryCfg.MaxBackoff().Milliseconds())
	assert.Equal(int64(30000), cfg.RetryCfg.StatementTimeout().Milliseconds())
	assert.Equal(int64(3000), cfg.HealthCfg.ProbeInterval().Milliseconds())
	assert.Equal(int64(500), cfg.HealthCfg.ProbeTimeout().Milliseconds())
}
