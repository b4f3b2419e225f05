package config

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		in      string
		dialect string
		dsn     string
		wantErr bool
	}{
		{"postgres://u:p@localhost:5432/raffle", DatabaseSchemePostgres, "postgres://u:p@localhost:5432/raffle", false},
		{"postgresql://localhost/raffle", DatabaseSchemePostgres, "postgresql://localhost/raffle", false},
		{"sqlite://raffle.db", DatabaseSchemeSQLite, "raffle.db", false},
		{"sqlite:///var/lib/raffle.db", DatabaseSchemeSQLite, "/var/lib/raffle.db", false},
		{"sqlite://file::memory:?cache=shared", DatabaseSchemeSQLite, "file::memory:?cache=shared", false},
		{"sqlite://", "", "", true},
		{"mysql://localhost/raffle", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			dialect, dsn, err := parseDatabaseURL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, dialect)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"RPC_URL", "DATABASE_URL", "ENTRANCE_FEE", "INTERVAL", "RAFFLE_ACCOUNT", "KEEPER_POLL", "ADMIN_TOKEN", "TUI", "DEBUG"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "", cfg.RPCURL)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, uint64(100), cfg.EntranceFee.Uint64())
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, common.HexToAddress(DefaultRaffleAccount), cfg.RaffleAccount)
	assert.Equal(t, time.Second, cfg.KeeperPoll)
	assert.Empty(t, cfg.DBDialect)
	assert.False(t, cfg.TUI)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENTRANCE_FEE", "10000000000000000")
	t.Setenv("INTERVAL", "2m")
	t.Setenv("RAFFLE_ACCOUNT", "0x00000000000000000000000000000000000000aa")
	t.Setenv("DATABASE_URL", "postgres://admin:secret@db:5432/raffle")
	t.Setenv("ADMIN_TOKEN", "hunter2")
	t.Setenv("TUI", "yes")

	cfg := Load()
	assert.Equal(t, "10000000000000000", cfg.EntranceFee.Dec())
	assert.Equal(t, 2*time.Minute, cfg.Interval)
	assert.Equal(t, common.HexToAddress("0xaa"), cfg.RaffleAccount)
	assert.Equal(t, DatabaseSchemePostgres, cfg.DBDialect)
	assert.True(t, cfg.TUI)

	s := cfg.DebugString()
	assert.NotContains(t, s, "secret")
	assert.NotContains(t, s, "hunter2")
	assert.Contains(t, s, "admin_token=***")
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("ENTRANCE_FEE", "0")
	t.Setenv("INTERVAL", "soon")
	t.Setenv("RAFFLE_ACCOUNT", "not-an-address")

	cfg := Load()
	assert.Equal(t, uint64(100), cfg.EntranceFee.Uint64())
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, common.HexToAddress(DefaultRaffleAccount), cfg.RaffleAccount)
}

func TestMaskDSNKeyValue(t *testing.T) {
	got := maskDSN(DatabaseSchemePostgres, "host=db user=raffle password=secret dbname=raffle")
	assert.Equal(t, "host=db user=raffle password=*** dbname=raffle", got)
}
