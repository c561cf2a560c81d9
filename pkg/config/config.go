package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

type NodeRole string

const (
	RoleCoordinator = NodeRole("coordinator")
	RoleWorker      = NodeRole("worker")
	RoleReplica     = NodeRole("replica")
)

type Node struct {
	Host   string `json:"host" toml:"host" yaml:"host"`
	Port   int    `json:"port" toml:"port" yaml:"port"`
	DB     string `json:"db" toml:"db" yaml:"db"`
	Usr    string `json:"usr" toml:"usr" yaml:"usr"`
	Passwd string `json:"passwd" toml:"passwd" yaml:"passwd"`

	Role NodeRole `json:"role" toml:"role" yaml:"role"`

	/* meaningful for worker nodes only */
	ShardID int `json:"shard_id" toml:"shard_id" yaml:"shard_id"`
}

type PoolCfg struct {
	ConnectionLimit  int `json:"connection_limit" toml:"connection_limit" yaml:"connection_limit"`
	AcquireTimeoutMs int `json:"acquire_timeout_ms" toml:"acquire_timeout_ms" yaml:"acquire_timeout_ms"`
	ConnectTimeoutMs int `json:"connect_timeout_ms" toml:"connect_timeout_ms" yaml:"connect_timeout_ms"`
}

type RetryCfg struct {
	/* retries after the first attempt: a statement runs at most MaxRetries+1 times */
	MaxRetries       uint64 `json:"max_retries" toml:"max_retries" yaml:"max_retries"`
	InitialBackoffMs int    `json:"initial_backoff_ms" toml:"initial_backoff_ms" yaml:"initial_backoff_ms"`
	MaxBackoffMs     int    `json:"max_backoff_ms" toml:"max_backoff_ms" yaml:"max_backoff_ms"`
	JitterPercent    uint64 `json:"jitter_percent" toml:"jitter_percent" yaml:"jitter_percent"`

	/* per-attempt bound on statement execution; a caller deadline only shortens it */
	StatementTimeoutMs int `json:"statement_timeout_ms" toml:"statement_timeout_ms" yaml:"statement_timeout_ms"`
}

type HealthCfg struct {
	ProbeIntervalMs int `json:"probe_interval_ms" toml:"probe_interval_ms" yaml:"probe_interval_ms"`
	ProbeTimeoutMs  int `json:"probe_timeout_ms" toml:"probe_timeout_ms" yaml:"probe_timeout_ms"`
}

type TwoPCCfg struct {
	CommitRetries       uint64 `json:"commit_retries" toml:"commit_retries" yaml:"commit_retries"`
	CommitBackoffMs     int    `json:"commit_backoff_ms" toml:"commit_backoff_ms" yaml:"commit_backoff_ms"`
	CommitMaxBackoffMs  int    `json:"commit_max_backoff_ms" toml:"commit_max_backoff_ms" yaml:"commit_max_backoff_ms"`
	StatementTimeoutMs  int    `json:"statement_timeout_ms" toml:"statement_timeout_ms" yaml:"statement_timeout_ms"`
}

type Mesh struct {
	LogLevel string `json:"log_level" toml:"log_level" yaml:"log_level"`
	HttpAddr string `json:"http_addr" toml:"http_addr" yaml:"http_addr"`

	/* murmur (default) or city */
	HashFunction string `json:"hash_function" toml:"hash_function" yaml:"hash_function"`

	Nodes []*Node `json:"nodes" toml:"nodes" yaml:"nodes"`

	PoolCfg   PoolCfg   `json:"pool" toml:"pool" yaml:"pool"`
	RetryCfg  RetryCfg  `json:"retry" toml:"retry" yaml:"retry"`
	HealthCfg HealthCfg `json:"health" toml:"health" yaml:"health"`
	TwoPCCfg  TwoPCCfg  `json:"twopc" toml:"twopc" yaml:"twopc"`
}

const (
	defaultConnectionLimit  = 50
	defaultAcquireTimeoutMs = 5000
	defaultConnectTimeoutMs = 3000

	defaultMaxRetries       = 3
	defaultInitialBackoffMs = 50
	defaultMaxBackoffMs     = 5000
	defaultJitterPercent    = 50

	defaultProbeIntervalMs = 3000
	defaultProbeTimeoutMs  = 500

	defaultCommitRetries      = 8
	defaultCommitBackoffMs    = 100
	defaultCommitMaxBackoffMs = 5000
	defaultStatementTimeoutMs = 30000
)

var cfgMesh Mesh

// LoadMeshCfg reads the mesh config from cfgPath, decoding YAML or TOML
// depending on the file extension, fills in defaults for unset tunables
// and stores the result in the process-global config.
//
// Parameters:
//   - cfgPath: Path to the config file (.yaml, .yml or .toml).
//
// Returns:
//   - error: An error if the file cannot be read or decoded.
func LoadMeshCfg(cfgPath string) error {
	if err := loadCfg(cfgPath, &cfgMesh); err != nil {
		return err
	}
	cfgMesh.FillDefaults()

	configBytes, err := json.MarshalIndent(cfgMesh, "", "  ")
	if err != nil {
		return err
	}
	log.Println("Running config:", string(configBytes))
	return nil
}

func loadCfg(cfgPath string, cfg *Mesh) error {
	file, err := os.Open(cfgPath)
	if err != nil {
		return err
	}
	defer file.Close()

	switch filepath.Ext(cfgPath) {
	case ".toml":
		_, err = toml.NewDecoder(file).Decode(cfg)
	case ".yaml", ".yml":
		err = yaml.NewDecoder(file).Decode(cfg)
	default:
		return xerrors.Errorf("unknown config format type: %s. Use .toml or .yaml", cfgPath)
	}
	return err
}

func MeshConfig() *Mesh {
	return &cfgMesh
}

func (c *Mesh) FillDefaults() {
	if c.PoolCfg.ConnectionLimit == 0 {
		c.PoolCfg.ConnectionLimit = defaultConnectionLimit
	}
	if c.PoolCfg.AcquireTimeoutMs == 0 {
		c.PoolCfg.AcquireTimeoutMs = defaultAcquireTimeoutMs
	}
	if c.PoolCfg.ConnectTimeoutMs == 0 {
		c.PoolCfg.ConnectTimeoutMs = defaultConnectTimeoutMs
	}
	if c.RetryCfg.MaxRetries == 0 {
		c.RetryCfg.MaxRetries = defaultMaxRetries
	}
	if c.RetryCfg.InitialBackoffMs == 0 {
		c.RetryCfg.InitialBackoffMs = defaultInitialBackoffMs
	}
	if c.RetryCfg.MaxBackoffMs == 0 {
		c.RetryCfg.MaxBackoffMs = defaultMaxBackoffMs
	}
	if c.RetryCfg.JitterPercent == 0 {
		c.RetryCfg.JitterPercent = defaultJitterPercent
	}
	if c.RetryCfg.StatementTimeoutMs == 0 {
		c.RetryCfg.StatementTimeoutMs = defaultStatementTimeoutMs
	}
	if c.HealthCfg.ProbeIntervalMs == 0 {
		c.HealthCfg.ProbeIntervalMs = defaultProbeIntervalMs
	}
	if c.HealthCfg.ProbeTimeoutMs == 0 {
		c.HealthCfg.ProbeTimeoutMs = defaultProbeTimeoutMs
	}
	if c.TwoPCCfg.CommitRetries == 0 {
		c.TwoPCCfg.CommitRetries = defaultCommitRetries
	}
	if c.TwoPCCfg.CommitBackoffMs == 0 {
		c.TwoPCCfg.CommitBackoffMs = defaultCommitBackoffMs
	}
	if c.TwoPCCfg.CommitMaxBackoffMs == 0 {
		c.TwoPCCfg.CommitMaxBackoffMs = defaultCommitMaxBackoffMs
	}
	if c.TwoPCCfg.StatementTimeoutMs == 0 {
		c.TwoPCCfg.StatementTimeoutMs = defaultStatementTimeoutMs
	}
}

func (p *PoolCfg) AcquireTimeout() time.Duration {
	return time.Duration(p.AcquireTimeoutMs) * time.Millisecond
}

func (p *PoolCfg) ConnectTimeout() time.Duration {
	return time.Duration(p.ConnectTimeoutMs) * time.Millisecond
}

func (r *RetryCfg) InitialBackoff() time.Duration {
	return time.Duration(r.InitialBackoffMs) * time.Millisecond
}

func (r *RetryCfg) MaxBackoff() time.Duration {
	return time.Duration(r.MaxBackoffMs) * time.Millisecond
}

func (r *RetryCfg) StatementTimeout() time.Duration {
	return time.Duration(r.StatementTimeoutMs) * time.Millisecond
}

func (h *HealthCfg) ProbeInterval() time.Duration {
	return time.Duration(h.ProbeIntervalMs) * time.Millisecond
}

func (h *HealthCfg) ProbeTimeout() time.Duration {
	return time.Duration(h.ProbeTimeoutMs) * time.Millisecond
}

func (t *TwoPCCfg) CommitBackoff() time.Duration {
	return time.Duration(t.CommitBackoffMs) * time.Millisecond
}

func (t *TwoPCCfg) CommitMaxBackoff() time.Duration {
	return time.Duration(t.CommitMaxBackoffMs) * time.Millisecond
}

func (t *TwoPCCfg) StatementTimeout() time.Duration {
	return time.Duration(t.StatementTimeoutMs) * time.Millisecond
}
