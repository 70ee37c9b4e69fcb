// Package config loads and validates the application configuration.
// Values are resolved with the following priority: defaults, then the
// optional .env file, then environment variables, then CLI flags.
package config

import (
	"flag"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	funk "github.com/thoas/go-funk"
)

// Config holds every externally tunable knob of the service.
type Config struct {
	RunAddr               string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel              string        `env:"LOG_LEVEL" validate:"loglevel"`
	DBFileName            string        `env:"FILE_STORAGE_PATH" validate:"filepath"`
	DatabaseDSN           string        `env:"DATABASE_DSN"`
	MongoURI              string        `env:"MONGO_URI"`
	MongoDatabase         string        `env:"MONGO_DATABASE"`
	DBConnectionTimeout   time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	MigrationsDir         string        `env:"MIGRATIONS_DIR"`
	TokenSigningSecretKey string        `env:"TOKEN_SECRET"`
	TokenTTL              time.Duration `env:"TOKEN_TTL"`
	TrustedSubnet         string        `env:"TRUSTED_SUBNET"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	LogLevel:            "info",
	MongoDatabase:       "todolst",
	DBConnectionTimeout: 10 * time.Second,
	MigrationsDir:       "cmd/todolst/migrations",
	// Development fallback, base64-encoded. Override in any real deployment.
	TokenSigningSecretKey: "dG9kb2xzdC1kZXYtc2lnbmluZy1rZXk=",
	TokenTTL:              24 * time.Hour,
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := []string{"debug", "info", "warn", "error", "fatal"}

	return funk.ContainsString(allowedLogLevels, fieldLevel.Field().String())
}

func validate(values *Config) error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(values)
}

// InitOption customizes the behavior of New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing disables CLI flag parsing; tests use it so
// `go test` flags do not collide with the application's flag set.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New assembles the configuration from defaults, .env, environment
// variables and CLI flags, then validates the result.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := defaultConfig

	if !options.disableFlagsParsing {
		flag.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port to run server")
		flag.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
		flag.StringVar(&values.DBFileName, "f", values.DBFileName, "JSON file name with database")
		flag.StringVar(&values.DatabaseDSN, "d", values.DatabaseDSN, "a string with the PostgreSQL connection details")
		flag.StringVar(&values.MongoURI, "m", values.MongoURI, "MongoDB connection URI")
		flag.StringVar(&values.TrustedSubnet, "t", values.TrustedSubnet, "trusted subnet in CIDR notation for internal endpoints")
		flag.DurationVar(&values.TokenTTL, "e", values.TokenTTL, "session token lifetime")
		flag.Parse()
	}

	var valuesFromEnv Config
	err = env.Parse(&valuesFromEnv)
	if err != nil {
		return nil, err
	}

	applyNonEmpty(&values, &valuesFromEnv)

	if err := validate(&values); err != nil {
		return nil, err
	}

	return &values, nil
}

func applyNonEmpty(values, overrides *Config) {
	if overrides.RunAddr != "" {
		values.RunAddr = overrides.RunAddr
	}

	if overrides.LogLevel != "" {
		values.LogLevel = overrides.LogLevel
	}

	if overrides.DBFileName != "" {
		values.DBFileName = overrides.DBFileName
	}

	if overrides.DatabaseDSN != "" {
		values.DatabaseDSN = overrides.DatabaseDSN
	}

	if overrides.MongoURI != "" {
		values.MongoURI = overrides.MongoURI
	}

	if overrides.MongoDatabase != "" {
		values.MongoDatabase = overrides.MongoDatabase
	}

	if overrides.DBConnectionTimeout != 0 {
		values.DBConnectionTimeout = overrides.DBConnectionTimeout
	}

	if overrides.MigrationsDir != "" {
		values.MigrationsDir = overrides.MigrationsDir
	}

	if overrides.TokenSigningSecretKey != "" {
		values.TokenSigningSecretKey = overrides.TokenSigningSecretKey
	}

	if overrides.TokenTTL != 0 {
		values.TokenTTL = overrides.TokenTTL
	}

	if overrides.TrustedSubnet != "" {
		values.TrustedSubnet = overrides.TrustedSubnet
	}
}
