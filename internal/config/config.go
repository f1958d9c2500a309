package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-mem-wallet/internal/logger"
	"github.com/JoeShih716/go-mem-wallet/pkg/mysql"
)

// EnvPath 指定設定檔路徑的環境變數
const EnvPath = "LEDGER_CONFIG"

// DefaultPath 沒有設定 EnvPath 時讀取的檔案
const DefaultPath = "config/config.yaml"

// Config 服務設定
type Config struct {
	GRPC    GRPCConfig    `yaml:"grpc"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     logger.Config `yaml:"log"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Audit   AuditConfig   `yaml:"audit"`
	MySQL   mysql.Config  `yaml:"mysql"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

type MetricsConfig struct {
	// Addr 空字串代表不啟動 /metrics
	Addr string `yaml:"addr"`
}

type LedgerConfig struct {
	IDMaxAttempts int `yaml:"id_max_attempts"`
	// LockTimeout 為 nil 時使用預設值，0 代表不設上限
	LockTimeout *time.Duration `yaml:"lock_timeout"`
}

type AuditConfig struct {
	// JournalPath 空字串代表不寫 journal
	JournalPath string `yaml:"journal_path"`
	// JournalSync 每筆紀錄都 fsync；false 時每筆只寫到作業系統，關閉時才 fsync
	JournalSync bool `yaml:"journal_sync"`
	Buffer      int  `yaml:"buffer"`
}

const (
	defaultGRPCAddr      = ":50051"
	defaultMetricsAddr   = ":9090"
	defaultIDMaxAttempts = 8
	defaultLockTimeout   = 5 * time.Second
	defaultAuditBuffer   = 1024
)

// Path 回傳設定檔路徑
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load 讀取並解析設定檔，補上預設值
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 yaml 內容，補上預設值
func Parse(data []byte) (Config, error) {
	cfg := Config{
		Metrics: MetricsConfig{Addr: defaultMetricsAddr},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LockTimeoutOrDefault 回傳實際使用的鎖等待上限
func (l LedgerConfig) LockTimeoutOrDefault() time.Duration {
	if l.LockTimeout == nil {
		return defaultLockTimeout
	}
	return *l.LockTimeout
}

func (c *Config) applyDefaults() {
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = defaultGRPCAddr
	}
	if c.Ledger.IDMaxAttempts == 0 {
		c.Ledger.IDMaxAttempts = defaultIDMaxAttempts
	}
	if c.Audit.Buffer == 0 {
		c.Audit.Buffer = defaultAuditBuffer
	}
	if c.MySQL.Enabled {
		c.MySQL = c.MySQL.WithDefaults()
	}
}

func (c *Config) validate() error {
	if c.Ledger.IDMaxAttempts < 0 {
		return fmt.Errorf("ledger.id_max_attempts must be positive, got %d", c.Ledger.IDMaxAttempts)
	}
	if c.Ledger.LockTimeout != nil && *c.Ledger.LockTimeout < 0 {
		return fmt.Errorf("ledger.lock_timeout must not be negative, got %s", *c.Ledger.LockTimeout)
	}
	if c.Audit.Buffer < 0 {
		return fmt.Errorf("audit.buffer must not be negative, got %d", c.Audit.Buffer)
	}
	if c.MySQL.Enabled && (c.MySQL.Host == "" || c.MySQL.DBName == "") {
		return fmt.Errorf("mysql.host and mysql.db_name are required when mysql.enabled is true")
	}
	return nil
}
