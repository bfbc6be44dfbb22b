// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional JSON config
// file, a .env file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted in Options.StoreDriver.
const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string

	// StoreDriver selects the backing store: mongo, postgres or memory.
	StoreDriver string

	// MongoURL is the MongoDB connection URI.
	MongoURL string

	// DatabaseName is the MongoDB database holding the users collection.
	DatabaseName string

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string

	// JWTSecret signs the session tokens.
	JWTSecret string

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration

	// ConnectTimeout bounds the first connection to the store.
	ConnectTimeout time.Duration

	LogLevel string

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string
	TLSKey  string

	// AuthRate is the register/login requests per second allowed per
	// client IP; AuthBurst is the bucket size.
	AuthRate  float64
	AuthBurst int

	// Config is the path to the Config file.
	Config string
}

// fileOptions mirrors Options in the JSON config file. Durations are
// written as Go duration strings ("90s", "1h").
type fileOptions struct {
	Addr           string  `json:"address"`
	StoreDriver    string  `json:"store_driver"`
	MongoURL       string  `json:"mongo_url"`
	DatabaseName   string  `json:"database_name"`
	DatabaseDSN    string  `json:"database_dsn"`
	JWTSecret      string  `json:"jwt_secret"`
	TokenTTL       string  `json:"token_ttl"`
	ConnectTimeout string  `json:"connect_timeout"`
	LogLevel       string  `json:"log_level"`
	TLSCert        string  `json:"tls_cert"`
	TLSKey         string  `json:"tls_key"`
	AuthRate       float64 `json:"auth_rate"`
	AuthBurst      int     `json:"auth_burst"`
}

// Parse loads .env if present, then parses the command-line flags, the
// config file and environment variables. Invalid configuration is fatal.
func Parse() *Options {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("error while reading .env file: %v", err)
	}

	options, err := ParseArgs(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return options
}

// ParseArgs builds Options from args and getenv. Precedence, lowest first:
// defaults, config file, flags, environment.
func ParseArgs(args []string, getenv func(string) string) (*Options, error) {
	options := &Options{}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&options.Addr, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.StoreDriver, "s", DriverMongo, "store driver: mongo, postgres or memory")
	fs.StringVar(&options.MongoURL, "m", "mongodb://localhost:27017", "mongodb uri")
	fs.StringVar(&options.DatabaseName, "n", "favkeeper", "mongodb database name")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.JWTSecret, "k", "", "token signing secret")
	fs.DurationVar(&options.TokenTTL, "ttl", time.Hour, "token lifetime")
	fs.DurationVar(&options.ConnectTimeout, "t", 10*time.Second, "store connect timeout")
	fs.StringVar(&options.LogLevel, "l", "info", "log level")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "path to TLS certificate")
	fs.StringVar(&options.TLSKey, "tls-key", "", "path to TLS key")
	fs.Float64Var(&options.AuthRate, "auth-rate", 1, "register/login requests per second per IP")
	fs.IntVar(&options.AuthBurst, "auth-burst", 5, "register/login burst per IP")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if options.Config != "" {
		if err := applyFile(options, options.Config, set); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(options, getenv); err != nil {
		return nil, err
	}
	return options, options.Validate()
}

func applyFile(o *Options, path string, set map[string]bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	var f fileOptions
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}

	str := func(flagName, v string, dst *string) {
		if v != "" && !set[flagName] {
			*dst = v
		}
	}
	str("a", f.Addr, &o.Addr)
	str("s", f.StoreDriver, &o.StoreDriver)
	str("m", f.MongoURL, &o.MongoURL)
	str("n", f.DatabaseName, &o.DatabaseName)
	str("d", f.DatabaseDSN, &o.DatabaseDSN)
	str("k", f.JWTSecret, &o.JWTSecret)
	str("l", f.LogLevel, &o.LogLevel)
	str("tls-cert", f.TLSCert, &o.TLSCert)
	str("tls-key", f.TLSKey, &o.TLSKey)

	if f.AuthRate != 0 && !set["auth-rate"] {
		o.AuthRate = f.AuthRate
	}
	if f.AuthBurst != 0 && !set["auth-burst"] {
		o.AuthBurst = f.AuthBurst
	}

	if f.TokenTTL != "" && !set["ttl"] {
		if o.TokenTTL, err = time.ParseDuration(f.TokenTTL); err != nil {
			return fmt.Errorf("config file token_ttl: %w", err)
		}
	}
	if f.ConnectTimeout != "" && !set["t"] {
		if o.ConnectTimeout, err = time.ParseDuration(f.ConnectTimeout); err != nil {
			return fmt.Errorf("config file connect_timeout: %w", err)
		}
	}
	return nil
}

func applyEnv(o *Options, getenv func(string) string) error {
	// PORT alone listens on all interfaces; SERVER_ADDRESS wins when both are set.
	if port := getenv("PORT"); port != "" {
		o.Addr = ":" + port
	}
	if serverAddress := getenv("SERVER_ADDRESS"); serverAddress != "" {
		o.Addr = serverAddress
	}

	for env, dst := range map[string]*string{
		"STORE_DRIVER":  &o.StoreDriver,
		"MONGO_URL":     &o.MongoURL,
		"DATABASE_NAME": &o.DatabaseName,
		"DATABASE_DSN":  &o.DatabaseDSN,
		"JWT_SECRET":    &o.JWTSecret,
		"LOG_LEVEL":     &o.LogLevel,
		"TLS_CERT":      &o.TLSCert,
		"TLS_KEY":       &o.TLSKey,
	} {
		if v := getenv(env); v != "" {
			*dst = v
		}
	}

	if v := getenv("AUTH_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("AUTH_RATE: %w", err)
		}
		o.AuthRate = r
	}
	if v := getenv("AUTH_BURST"); v != "" {
		b, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AUTH_BURST: %w", err)
		}
		o.AuthBurst = b
	}

	for env, dst := range map[string]*time.Duration{
		"TOKEN_TTL":       &o.TokenTTL,
		"CONNECT_TIMEOUT": &o.ConnectTimeout,
	} {
		if v := getenv(env); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", env, err)
			}
			*dst = d
		}
	}
	return nil
}

// Validate reports inconsistent or missing settings.
func (o *Options) Validate() error {
	switch o.StoreDriver {
	case DriverMemory:
	case DriverMongo:
		if o.MongoURL == "" {
			return errors.New("mongo store requires MONGO_URL")
		}
	case DriverPostgres:
		if o.DatabaseDSN == "" {
			return errors.New("postgres store requires DATABASE_DSN")
		}
	default:
		return fmt.Errorf("unknown store driver %q", o.StoreDriver)
	}
	if o.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if o.TokenTTL <= 0 || o.ConnectTimeout <= 0 {
		return errors.New("token ttl and connect timeout must be positive")
	}
	if o.AuthRate <= 0 || o.AuthBurst <= 0 {
		return errors.New("auth rate and burst must be positive")
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("TLS_CERT and TLS_KEY must be set together")
	}
	return nil
}
