package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pmogan77/KVStore/kv/util/logutil"
)

// Storage engines the server can persist to.
const (
	EngineMemory   = "memory"
	EngineBadger   = "badger"
	EngineSQLite   = "sqlite"
	EngineDynamoDB = "dynamodb"
)

// Persist modes.
const (
	PersistSync  = "sync"
	PersistAsync = "async"
)

type Config struct {
	Addr       string `toml:"addr" json:"addr"`
	StatusAddr string `toml:"status-addr" json:"status-addr"`

	Engine     string `toml:"engine" json:"engine"`
	DBPath     string `toml:"db-path" json:"db-path"` // Directory to store badger data in. Should exist and be writable.
	SQLitePath string `toml:"sqlite-path" json:"sqlite-path"`

	DynamoDB DynamoDBConfig `toml:"dynamodb" json:"dynamodb"`

	PersistMode      string  `toml:"persist-mode" json:"persist-mode"`
	PersistQueueSize int     `toml:"persist-queue-size" json:"persist-queue-size"`
	PersistRateLimit float64 `toml:"persist-rate-limit" json:"persist-rate-limit"`

	// ShutdownTimeout bounds how long the HTTP servers may take to drain.
	ShutdownTimeout time.Duration `toml:"-" json:"-"`

	Log log.Config `toml:"log" json:"log"`
}

type DynamoDBConfig struct {
	Table    string `toml:"table" json:"table"`
	Region   string `toml:"region" json:"region"`
	Endpoint string `toml:"endpoint" json:"endpoint"`
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	switch c.Engine {
	case EngineMemory:
	case EngineBadger:
		if c.DBPath == "" {
			return errors.New("db-path is required by the badger engine")
		}
	case EngineSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite-path is required by the sqlite engine")
		}
	case EngineDynamoDB:
		if c.DynamoDB.Table == "" {
			return errors.New("dynamodb.table is required by the dynamodb engine")
		}
	default:
		return errors.Errorf("unknown engine %q", c.Engine)
	}

	switch c.PersistMode {
	case PersistSync, PersistAsync:
	default:
		return errors.Errorf("unknown persist-mode %q", c.PersistMode)
	}
	if c.PersistQueueSize < 0 {
		return errors.New("persist-queue-size must not be negative")
	}
	if c.PersistRateLimit < 0 {
		return errors.New("persist-rate-limit must not be negative")
	}

	if c.Log.Level != "" && !logutil.ValidLevel(c.Log.Level) {
		return errors.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// LoadFile overlays the toml file at path onto c. Keys the file does not
// mention keep their current values.
func (c *Config) LoadFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Annotatef(err, "load config %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		errInfo := "config contains undefined item: "
		for i, key := range undecoded {
			if i > 0 {
				errInfo += ", "
			}
			errInfo += key.String()
		}
		return errors.New(errInfo)
	}
	return nil
}

func getLogLevel() (logLevel string) {
	logLevel = "info"
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	return &Config{
		Addr:             "127.0.0.1:8000",
		StatusAddr:       "127.0.0.1:8001",
		Engine:           EngineSQLite,
		DBPath:           "/tmp/kvstore",
		SQLitePath:       "kvstore.db",
		DynamoDB:         DynamoDBConfig{Table: "kvstore"},
		PersistMode:      PersistSync,
		PersistQueueSize: 128,
		ShutdownTimeout:  5 * time.Second,
		Log: log.Config{
			Level:  getLogLevel(),
			Format: "text",
		},
	}
}

func NewTestConfig() *Config {
	return &Config{
		Addr:             "127.0.0.1:0",
		Engine:           EngineMemory,
		PersistMode:      PersistSync,
		PersistQueueSize: 16,
		ShutdownTimeout:  time.Second,
		Log: log.Config{
			Level:  getLogLevel(),
			Format: "text",
		},
	}
}
