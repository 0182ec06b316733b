package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stashEnv clears the given variables for the duration of the test and
// restores their original values afterwards.
func stashEnv(t *testing.T, keys ...string) {
	t.Helper()
	saved := make(map[string]string, len(keys))
	for _, k := range keys {
		saved[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range saved {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
}

var loadEnvKeys = []string{
	"DEPOSITS_APP_NAME",
	"DEPOSITS_APP_ENV",
	"DEPOSITS_APP_PORT",
	"DEPOSITS_DATABASE_HOST",
	"DEPOSITS_DATABASE_PORT",
	"DEPOSITS_DATABASE_USER",
	"DEPOSITS_DATABASE_PASSWORD",
	"DEPOSITS_DATABASE_DBNAME",
	"DEPOSITS_DATABASE_SSLMODE",
	"DEPOSITS_DATABASE_MAX_OPEN_CONNS",
	"DEPOSITS_DATABASE_MAX_IDLE_CONNS",
	"DEPOSITS_LEDGER_BASE_URL",
	"DEPOSITS_ACCRUAL_ALIGNMENT_HOUR",
	"APP_ENV",
}

func TestLoad_Defaults(t *testing.T) {
	stashEnv(t, loadEnvKeys...)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "deposits-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "", cfg.Database.Password)
	assert.Equal(t, "deposits", cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
}

func TestLoad_LedgerAndAccrualDefaults(t *testing.T) {
	stashEnv(t, loadEnvKeys...)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9090", cfg.Ledger.BaseURL)
	assert.Equal(t, "9100", cfg.Ledger.EquityLedgerIdentifier)
	assert.Equal(t, "7210", cfg.Ledger.ClearingAccountIdentifier)
	assert.Equal(t, "1300", cfg.Ledger.FeeIncomeAccount)
	assert.Equal(t, "3200", cfg.Ledger.InterestExpenseAccount)
	assert.Equal(t, 2000, cfg.Ledger.FallbackScanPageSize)
	assert.Equal(t, "deposits-backend", cfg.Accrual.OwnerApp)
	assert.Equal(t, "daily-accrual", cfg.Accrual.BeatIdentifier)
	assert.Equal(t, 0, cfg.Accrual.AlignmentHour)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	stashEnv(t, loadEnvKeys...)
	os.Setenv("DEPOSITS_APP_NAME", "test-app")
	os.Setenv("DEPOSITS_APP_ENV", "testing")
	os.Setenv("DEPOSITS_APP_PORT", "9000")
	os.Setenv("DEPOSITS_DATABASE_HOST", "testdb.local")
	os.Setenv("DEPOSITS_DATABASE_PORT", "5433")
	os.Setenv("DEPOSITS_DATABASE_USER", "testuser")
	os.Setenv("DEPOSITS_DATABASE_PASSWORD", "testpass")
	os.Setenv("DEPOSITS_DATABASE_DBNAME", "testdb")
	os.Setenv("DEPOSITS_DATABASE_SSLMODE", "require")
	os.Setenv("DEPOSITS_DATABASE_MAX_OPEN_CONNS", "50")
	os.Setenv("DEPOSITS_DATABASE_MAX_IDLE_CONNS", "10")
	os.Setenv("DEPOSITS_LEDGER_BASE_URL", "http://ledger.internal:9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-app", cfg.App.Name)
	assert.Equal(t, "testing", cfg.App.Env)
	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "testdb.local", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "testuser", cfg.Database.User)
	assert.Equal(t, "testpass", cfg.Database.Password)
	assert.Equal(t, "testdb", cfg.Database.DBName)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10, cfg.Database.MaxIdleConns)
	assert.Equal(t, "http://ledger.internal:9090", cfg.Ledger.BaseURL)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("idle connections cannot exceed open connections", func(t *testing.T) {
		stashEnv(t, loadEnvKeys...)
		os.Setenv("DEPOSITS_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("DEPOSITS_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero open connections means not configured", func(t *testing.T) {
		stashEnv(t, loadEnvKeys...)
		os.Setenv("DEPOSITS_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("negative idle connections rejected", func(t *testing.T) {
		stashEnv(t, loadEnvKeys...)
		os.Setenv("DEPOSITS_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("alignment hour must be a valid hour of day", func(t *testing.T) {
		stashEnv(t, loadEnvKeys...)
		os.Setenv("DEPOSITS_ACCRUAL_ALIGNMENT_HOUR", "24")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "accrual.alignment_hour")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	prodKeys := []string{
		"DEPOSITS_APP_ENV",
		"DEPOSITS_DATABASE_PASSWORD",
		"DEPOSITS_DATABASE_SSLMODE",
		"APP_ENV",
	}

	t.Run("requires a database password", func(t *testing.T) {
		stashEnv(t, prodKeys...)
		os.Setenv("DEPOSITS_APP_ENV", "production")
		os.Setenv("DEPOSITS_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL", func(t *testing.T) {
		stashEnv(t, prodKeys...)
		os.Setenv("DEPOSITS_APP_ENV", "production")
		os.Setenv("DEPOSITS_DATABASE_PASSWORD", "secure-password")
		os.Setenv("DEPOSITS_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("accepts a complete production config", func(t *testing.T) {
		stashEnv(t, prodKeys...)
		os.Setenv("DEPOSITS_APP_ENV", "production")
		os.Setenv("DEPOSITS_DATABASE_PASSWORD", "secure-password")
		os.Setenv("DEPOSITS_DATABASE_SSLMODE", "require")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	base := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	t.Run("contains every connection component", func(t *testing.T) {
		dsn := base.DSN()

		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in the password", func(t *testing.T) {
		cfg := base
		cfg.Password = "pass@word#123"

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})

	t.Run("tolerates an empty password", func(t *testing.T) {
		cfg := base
		cfg.Password = ""

		assert.NotEmpty(t, cfg.DSN())
	})
}
