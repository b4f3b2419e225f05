package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// DatabaseSchemePostgres is the postgres database scheme identifier
	DatabaseSchemePostgres = "postgres"
	// DatabaseSchemeSQLite is the sqlite database scheme identifier
	DatabaseSchemeSQLite = "sqlite"

	// DefaultRaffleAccount holds the pool when RAFFLE_ACCOUNT is not set
	DefaultRaffleAccount = "0x0000000000000000000000000000000000007a11"
)

type Config struct {
	RPCURL    string // optional: CometBFT node whose block time drives the raffle clock
	WSPath    string
	DBDialect string // postgres or sqlite
	DBDsn     string // DSN string passed to GORM driver

	ListenAddr string
	AdminToken string // bearer token for operator endpoints; empty disables them

	EntranceFee   *uint256.Int
	Interval      time.Duration
	RaffleAccount common.Address
	KeeperPoll    time.Duration

	VRFDelay time.Duration // delay before the local coordinator delivers randomness
	VRFRetry time.Duration // delay before a rejected delivery is retried
	VRFSeed  string

	TUI   bool // show the dashboard
	Debug bool // verbose logs
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		fmt.Fprintf(os.Stderr, "warning: invalid %s=%q, using %s\n", key, v, def)
		return def
	}
	return d
}

func getenvAmount(key string, def uint64) *uint256.Int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return uint256.NewInt(def)
	}
	amount, err := uint256.FromDecimal(v)
	if err != nil || amount.IsZero() {
		fmt.Fprintf(os.Stderr, "warning: invalid %s=%q, using %d\n", key, v, def)
		return uint256.NewInt(def)
	}
	return amount
}

func getenvAddress(key, def string) common.Address {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return common.HexToAddress(def)
	}
	if !common.IsHexAddress(v) {
		fmt.Fprintf(os.Stderr, "warning: invalid %s=%q, using %s\n", key, v, def)
		return common.HexToAddress(def)
	}
	return common.HexToAddress(v)
}

// parseDatabaseURL interprets DATABASE_URL and returns (dialect, dsn).
// Supported schemes: postgres, postgresql, sqlite.
func parseDatabaseURL(databaseURL string) (string, string, error) {
	// sqlite DSNs such as file::memory: are not valid URLs, handle them first
	if scheme, rest, ok := strings.Cut(databaseURL, "://"); ok && strings.EqualFold(scheme, DatabaseSchemeSQLite) {
		// sqlite://raffle.db, sqlite:///abs/path.db or sqlite://file::memory:?cache=shared
		if rest == "" {
			return "", "", fmt.Errorf("empty sqlite path in DATABASE_URL")
		}
		return DatabaseSchemeSQLite, rest, nil
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", err
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case DatabaseSchemePostgres, "postgresql":
		// GORM postgres driver accepts URL DSN as-is
		return DatabaseSchemePostgres, databaseURL, nil
	default:
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme: %s", u.Scheme)
	}
}

func Load() Config {
	cfg := Config{
		RPCURL:        os.Getenv("RPC_URL"),
		WSPath:        getenv("WS_PATH", "/websocket"),
		ListenAddr:    getenv("LISTEN_ADDR", ":8080"),
		AdminToken:    os.Getenv("ADMIN_TOKEN"),
		EntranceFee:   getenvAmount("ENTRANCE_FEE", 100),
		Interval:      getenvDuration("INTERVAL", 30*time.Second),
		RaffleAccount: getenvAddress("RAFFLE_ACCOUNT", DefaultRaffleAccount),
		KeeperPoll:    getenvDuration("KEEPER_POLL", time.Second),
		VRFDelay:      getenvDuration("VRF_DELAY", 2*time.Second),
		VRFRetry:      getenvDuration("VRF_RETRY", 5*time.Second),
		VRFSeed:       os.Getenv("VRF_SEED"),
		TUI:           getenvBool("TUI", false),
		Debug:         getenvBool("DEBUG", false),
	}
	if cfg.KeeperPoll == 0 {
		cfg.KeeperPoll = time.Second
	}

	if dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL")); dbURL != "" {
		if dialect, dsn, err := parseDatabaseURL(dbURL); err == nil {
			cfg.DBDialect = dialect
			cfg.DBDsn = dsn
		} else {
			fmt.Fprintf(os.Stderr, "warning: invalid DATABASE_URL, disabling persistence: %v\n", err)
		}
	}

	return cfg
}

func (c Config) WSURL() string {
	// cometbft http client expects a separate ws endpoint path
	return c.WSPath
}

func (c Config) String() string {
	return fmt.Sprintf("fee=%s interval=%s listen=%s db=%s", c.EntranceFee.Dec(), c.Interval, c.ListenAddr, c.DBDialect)
}

// DebugString returns a human-friendly configuration string with masked secrets.
func (c Config) DebugString() string {
	token := ""
	if c.AdminToken != "" {
		token = "***"
	}
	return fmt.Sprintf(
		"fee=%s interval=%s account=%s listen=%s admin_token=%s rpc=%s ws_path=%s db=%s dsn=%s keeper_poll=%s vrf_delay=%s vrf_retry=%s",
		c.EntranceFee.Dec(),
		c.Interval,
		c.RaffleAccount.Hex(),
		c.ListenAddr,
		token,
		c.RPCURL,
		c.WSPath,
		c.DBDialect,
		maskDSN(c.DBDialect, c.DBDsn),
		c.KeeperPoll,
		c.VRFDelay,
		c.VRFRetry,
	)
}

func maskDSN(dialect, dsn string) string {
	switch strings.ToLower(dialect) {
	case DatabaseSchemePostgres:
		if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
			if u.User != nil {
				username := u.User.Username()
				u.User = url.User(username)
			}
			return u.String()
		}
		// Fallback for DSN as key-value list
		parts := strings.Fields(dsn)
		for i, p := range parts {
			lower := strings.ToLower(p)
			if strings.HasPrefix(lower, "password=") {
				parts[i] = "password=***"
			}
		}
		return strings.Join(parts, " ")
	default:
		return dsn
	}
}
