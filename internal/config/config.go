// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional JSON file and
// environment variables.
//
// Precedence, lowest first: defaults, config file, flags, environment.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultServerAddress  = "localhost:8080"
	DefaultLogLevel       = "info"
	DefaultDNSTimeout     = 3 * time.Second
	DefaultRequestTimeout = 5 * time.Second
	DefaultCacheTTL       = time.Hour
)

// Options holds the configuration values for the application.
type Options struct {
	// ServerAddress defines the server's listening address (ip:port).
	ServerAddress string `env:"SERVER_ADDRESS"`

	// Port, when set, overrides ServerAddress with ":<port>".
	Port string `env:"PORT"`

	// DatabaseDSN is the PostgreSQL connection string. Empty selects the in-memory store.
	DatabaseDSN string `env:"DATABASE_DSN"`

	// RedisAddr enables the resolved-id cache when set.
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB"`
	CacheTTL      time.Duration `env:"CACHE_TTL"`

	LogLevel string `env:"LOG_LEVEL"`
	LogFile  string `env:"LOG_FILE"`

	// DNSTimeout bounds a single host resolution.
	DNSTimeout time.Duration `env:"DNS_TIMEOUT"`

	// RequestTimeout bounds the work of a single HTTP request.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// TrustedSubnet restricts /metrics and the gRPC health service (CIDR).
	TrustedSubnet string `env:"TRUSTED_SUBNET"`

	// GRPCPort enables the gRPC health server when non-zero.
	GRPCPort int `env:"GRPC_PORT"`

	EnablePprof bool `env:"ENABLE_PPROF"`
	EnableHTTPS bool `env:"ENABLE_HTTPS"`

	// TLSHosts is a comma-separated whitelist for autocert.
	TLSHosts string `env:"TLS_HOSTS"`

	// Config is the path to an optional JSON config file.
	Config string `env:"CONFIG"`
}

// fileOptions mirrors Options in the JSON config file.
// Durations are written as Go duration strings ("3s").
type fileOptions struct {
	ServerAddress  string `json:"server_address"`
	DatabaseDSN    string `json:"database_dsn"`
	RedisAddr      string `json:"redis_addr"`
	RedisDB        int    `json:"redis_db"`
	CacheTTL       string `json:"cache_ttl"`
	LogLevel       string `json:"log_level"`
	LogFile        string `json:"log_file"`
	DNSTimeout     string `json:"dns_timeout"`
	RequestTimeout string `json:"request_timeout"`
	TrustedSubnet  string `json:"trusted_subnet"`
	GRPCPort       int    `json:"grpc_port"`
	EnablePprof    bool   `json:"enable_pprof"`
	EnableHTTPS    bool   `json:"enable_https"`
	TLSHosts       string `json:"tls_hosts"`
}

func defaults() *Options {
	return &Options{
		ServerAddress:  DefaultServerAddress,
		LogLevel:       DefaultLogLevel,
		DNSTimeout:     DefaultDNSTimeout,
		RequestTimeout: DefaultRequestTimeout,
		CacheTTL:       DefaultCacheTTL,
	}
}

func bindFlags(fs *flag.FlagSet, o *Options) {
	fs.StringVar(&o.ServerAddress, "a", o.ServerAddress, "run on ip:port server")
	fs.StringVar(&o.DatabaseDSN, "d", o.DatabaseDSN, "db address")
	fs.StringVar(&o.RedisAddr, "r", o.RedisAddr, "redis address for the lookup cache")
	fs.DurationVar(&o.CacheTTL, "cache-ttl", o.CacheTTL, "ttl of cached lookups")
	fs.StringVar(&o.LogLevel, "l", o.LogLevel, "log level")
	fs.StringVar(&o.LogFile, "log-file", o.LogFile, "duplicate logs into a rotated file")
	fs.DurationVar(&o.DNSTimeout, "dns-timeout", o.DNSTimeout, "host resolution timeout")
	fs.DurationVar(&o.RequestTimeout, "request-timeout", o.RequestTimeout, "per-request timeout")
	fs.StringVar(&o.TrustedSubnet, "t", o.TrustedSubnet, "trusted subnet (CIDR)")
	fs.IntVar(&o.GRPCPort, "g", o.GRPCPort, "grpc health port, 0 disables")
	fs.BoolVar(&o.EnablePprof, "p", o.EnablePprof, "enable pprof")
	fs.BoolVar(&o.EnableHTTPS, "s", o.EnableHTTPS, "enable https")
	fs.StringVar(&o.TLSHosts, "tls-hosts", o.TLSHosts, "comma-separated autocert hosts")
	fs.StringVar(&o.Config, "c", o.Config, "path to json config file")
}

// Parse builds Options from args (without the program name) and the environment.
func Parse(args []string) (*Options, error) {
	// First pass only discovers the config file path.
	probe := defaults()
	probeFS := flag.NewFlagSet("shortener", flag.ContinueOnError)
	probeFS.SetOutput(io.Discard)
	bindFlags(probeFS, probe)
	if err := probeFS.Parse(args); err != nil {
		return nil, err
	}

	cfgPath := probe.Config
	if v, ok := os.LookupEnv("CONFIG"); ok && v != "" {
		cfgPath = v
	}

	options := defaults()
	if cfgPath != "" {
		if err := loadFile(cfgPath, options); err != nil {
			return nil, err
		}
	}

	fs := flag.NewFlagSet("shortener", flag.ContinueOnError)
	bindFlags(fs, options)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := env.Parse(options); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if options.Port != "" {
		options.ServerAddress = ":" + options.Port
	}

	if err := options.validate(); err != nil {
		return nil, err
	}

	return options, nil
}

func loadFile(path string, o *Options) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var f fileOptions
	if err := json.Unmarshal(content, &f); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}

	setString(&o.ServerAddress, f.ServerAddress)
	setString(&o.DatabaseDSN, f.DatabaseDSN)
	setString(&o.RedisAddr, f.RedisAddr)
	setString(&o.LogLevel, f.LogLevel)
	setString(&o.LogFile, f.LogFile)
	setString(&o.TrustedSubnet, f.TrustedSubnet)
	setString(&o.TLSHosts, f.TLSHosts)

	if f.RedisDB != 0 {
		o.RedisDB = f.RedisDB
	}
	if f.GRPCPort != 0 {
		o.GRPCPort = f.GRPCPort
	}
	o.EnablePprof = o.EnablePprof || f.EnablePprof
	o.EnableHTTPS = o.EnableHTTPS || f.EnableHTTPS

	for _, d := range []struct {
		raw string
		dst *time.Duration
	}{
		{f.CacheTTL, &o.CacheTTL},
		{f.DNSTimeout, &o.DNSTimeout},
		{f.RequestTimeout, &o.RequestTimeout},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		*d.dst = v
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (o *Options) validate() error {
	if o.DNSTimeout <= 0 {
		return errors.New("dns timeout must be positive")
	}
	if o.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if o.TrustedSubnet != "" {
		if _, _, err := net.ParseCIDR(o.TrustedSubnet); err != nil {
			return fmt.Errorf("trusted subnet: %w", err)
		}
	}
	return nil
}

// Hosts returns the autocert host whitelist.
func (o *Options) Hosts() []string {
	var hosts []string
	for _, h := range strings.Split(o.TLSHosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
