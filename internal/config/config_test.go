package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atinyakov/shorturl/internal/config"
)

func TestParse(t *testing.T) {
	t.Run("no env, no config", func(t *testing.T) {
		os.Clearenv()
		opts, err := config.Parse(nil)
		require.NoError(t, err)
		require.Equal(t, "localhost:8080", opts.ServerAddress)
		require.Equal(t, "", opts.DatabaseDSN)
		require.Equal(t, "info", opts.LogLevel)
		require.Equal(t, 3*time.Second, opts.DNSTimeout)
		require.Equal(t, 5*time.Second, opts.RequestTimeout)
		require.Equal(t, 0, opts.GRPCPort)
		require.False(t, opts.EnableHTTPS)
		require.False(t, opts.EnablePprof)
	})

	t.Run("flags", func(t *testing.T) {
		os.Clearenv()
		opts, err := config.Parse([]string{"-a", "127.0.0.1:9090", "-d", "postgres://flag", "-dns-timeout", "1s", "-g", "50051"})
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1:9090", opts.ServerAddress)
		require.Equal(t, "postgres://flag", opts.DatabaseDSN)
		require.Equal(t, time.Second, opts.DNSTimeout)
		require.Equal(t, 50051, opts.GRPCPort)
	})

	t.Run("env overrides flags", func(t *testing.T) {
		os.Clearenv()
		t.Setenv("SERVER_ADDRESS", "127.0.0.1:9999")
		t.Setenv("DATABASE_DSN", "postgres://env")
		t.Setenv("ENABLE_HTTPS", "true")
		t.Setenv("TRUSTED_SUBNET", "192.168.0.0/24")
		t.Setenv("DNS_TIMEOUT", "2s")

		opts, err := config.Parse([]string{"-a", "127.0.0.1:1111", "-d", "postgres://flag"})
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1:9999", opts.ServerAddress)
		require.Equal(t, "postgres://env", opts.DatabaseDSN)
		require.True(t, opts.EnableHTTPS)
		require.Equal(t, "192.168.0.0/24", opts.TrustedSubnet)
		require.Equal(t, 2*time.Second, opts.DNSTimeout)
	})

	t.Run("PORT wins over SERVER_ADDRESS", func(t *testing.T) {
		os.Clearenv()
		t.Setenv("SERVER_ADDRESS", "127.0.0.1:9999")
		t.Setenv("PORT", "3000")

		opts, err := config.Parse(nil)
		require.NoError(t, err)
		require.Equal(t, ":3000", opts.ServerAddress)
	})

	t.Run("config file, flags win", func(t *testing.T) {
		os.Clearenv()

		cfgPath := filepath.Join(t.TempDir(), "cfg.json")
		content := `{
			"server_address": "10.0.0.1:8081",
			"database_dsn": "postgres://test",
			"enable_pprof": true,
			"trusted_subnet": "10.10.0.0/16",
			"request_timeout": "7s",
			"tls_hosts": "a.example.com, b.example.com"
		}`
		require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

		opts, err := config.Parse([]string{"-c", cfgPath, "-d", "postgres://flag"})
		require.NoError(t, err)
		require.Equal(t, "10.0.0.1:8081", opts.ServerAddress)
		require.Equal(t, "postgres://flag", opts.DatabaseDSN)
		require.True(t, opts.EnablePprof)
		require.Equal(t, "10.10.0.0/16", opts.TrustedSubnet)
		require.Equal(t, 7*time.Second, opts.RequestTimeout)
		require.Equal(t, []string{"a.example.com", "b.example.com"}, opts.Hosts())
	})

	t.Run("config file from env", func(t *testing.T) {
		os.Clearenv()

		cfgPath := filepath.Join(t.TempDir(), "cfg.json")
		require.NoError(t, os.WriteFile(cfgPath, []byte(`{"log_level":"debug"}`), 0o644))
		t.Setenv("CONFIG", cfgPath)

		opts, err := config.Parse(nil)
		require.NoError(t, err)
		require.Equal(t, "debug", opts.LogLevel)
	})

	t.Run("invalid input", func(t *testing.T) {
		os.Clearenv()

		_, err := config.Parse([]string{"-c", filepath.Join(t.TempDir(), "missing.json")})
		require.Error(t, err)

		_, err = config.Parse([]string{"-t", "not-a-cidr"})
		require.Error(t, err)

		_, err = config.Parse([]string{"-dns-timeout", "0s"})
		require.Error(t, err)

		_, err = config.Parse([]string{"-unknown"})
		require.Error(t, err)
	})
}
