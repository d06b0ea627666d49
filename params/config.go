package params

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Server struct {
	// ListenAddr is the UDP address the exchange binds to.
	ListenAddr string
	// APIAddr is the HTTP/WebSocket status server address.
	APIAddr string
}

type Engine struct {
	// CycleBudget bounds the request-processing slice run before each
	// administrative cycle (eviction, crossing sweep, snapshots).
	CycleBudget time.Duration
	// PollInterval bounds a single wait for the next queued request
	// inside the slice.
	PollInterval time.Duration
	// RewardFile holds the payload delivered verbatim to winning accounts.
	RewardFile string
}

type Storage struct {
	// JournalPath is the Pebble directory for the fill tape.
	// Empty disables journaling.
	JournalPath string
	// LogFile receives structured logs in addition to stdout.
	LogFile string
}

type Config struct {
	Server  Server
	Engine  Engine
	Storage Storage
}

func Default() Config {
	return Config{
		Server: Server{
			ListenAddr: ":14550",
			APIAddr:    ":8080",
		},
		Engine: Engine{
			CycleBudget:  500 * time.Millisecond,
			PollInterval: 10 * time.Millisecond,
			RewardFile:   "flag",
		},
		Storage: Storage{
			JournalPath: "data/journal",
			LogFile:     "data/pit.log",
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Server.APIAddr = v
	}
	if v := os.Getenv("CYCLE_BUDGET_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Engine.CycleBudget = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("POLL_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Engine.PollInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("REWARD_FILE"); v != "" {
		cfg.Engine.RewardFile = v
	}
	if v := os.Getenv("JOURNAL_PATH"); v != "" {
		cfg.Storage.JournalPath = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Storage.LogFile = v
	}

	return cfg
}
