package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sajjad-MoBe/genv/internal/storage"
)

const (
	DefaultConfigPath = "/etc/genv/config.json"
	DefaultStatePath  = "/etc/genv/state.json"
	DefaultListen     = "localhost:3000"

	BackendFile = "file"
	BackendS3   = "s3"
)

var (
	// ErrConfigNotFound is returned when the config file does not exist
	ErrConfigNotFound = errors.New("config file not found")
	// ErrMissingSecret is returned when no secret is configured
	ErrMissingSecret = errors.New("config is missing key 'secret'")
)

// Config holds the server configuration. It is immutable once loaded.
type Config struct {
	Listen         string
	Secret         string
	StatePath      string
	Backend        string
	S3             storage.ObjectConfig
	OpsListen      string
	GRPCListen     string
	JaegerEndpoint string
	LogLevel       string
	LogFormat      string
}

// RegisterFlags defines the server flags on fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", DefaultConfigPath, "Path to the JSON config file")
	fs.StringP("listen", "l", DefaultListen, "Address for the HTTP server to listen on")
	fs.String("state", DefaultStatePath, "Path to the JSON state snapshot")
	fs.String("snapshot-backend", BackendFile, "Snapshot backend: file or s3")
	fs.String("s3-endpoint", "", "S3 endpoint (host:port) for the s3 snapshot backend")
	fs.String("s3-bucket", "", "S3 bucket for the s3 snapshot backend")
	fs.String("s3-object", "state.json", "Object name holding the snapshot")
	fs.String("s3-access-key", "", "S3 access key (defaults to the AWS/MinIO credential chain)")
	fs.String("s3-secret-key", "", "S3 secret key")
	fs.String("s3-region", "", "S3 region")
	fs.Bool("s3-insecure", false, "Use plain HTTP for the S3 endpoint")
	fs.String("ops-listen", "", "Address serving /metrics and /healthz (disabled when empty)")
	fs.String("grpc-listen", "", "Address serving the gRPC health service (disabled when empty)")
	fs.String("jaeger-endpoint", "", "Jaeger collector endpoint (tracing disabled when empty)")
	fs.String("log-level", "info", "Log level: debug, info, warn or error")
	fs.String("log-format", "text", "Log format: text or json")
}

// NewViper returns a viper instance bound to fs with GENV_ environment overrides
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix("GENV")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v, nil
}

// Load reads the JSON config file named by the "config" key and resolves
// the final configuration.
func Load(v *viper.Viper) (*Config, error) {
	path := strings.TrimSpace(v.GetString("config"))
	if path == "" {
		path = DefaultConfigPath
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config file %q is a directory", path)
	}

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to parse config file %q: %w", path, err)
	}

	cfg := &Config{
		Listen:    v.GetString("listen"),
		Secret:    v.GetString("secret"),
		StatePath: v.GetString("state"),
		Backend:   strings.ToLower(strings.TrimSpace(v.GetString("snapshot-backend"))),
		S3: storage.ObjectConfig{
			Endpoint:  v.GetString("s3-endpoint"),
			Bucket:    v.GetString("s3-bucket"),
			Object:    v.GetString("s3-object"),
			AccessKey: v.GetString("s3-access-key"),
			SecretKey: v.GetString("s3-secret-key"),
			Region:    v.GetString("s3-region"),
			Insecure:  v.GetBool("s3-insecure"),
		},
		OpsListen:      v.GetString("ops-listen"),
		GRPCListen:     v.GetString("grpc-listen"),
		JaegerEndpoint: v.GetString("jaeger-endpoint"),
		LogLevel:       v.GetString("log-level"),
		LogFormat:      v.GetString("log-format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that make the server unable to start
func (c *Config) Validate() error {
	if c.Secret == "" {
		return ErrMissingSecret
	}
	if c.Listen == "" {
		return errors.New("listen address cannot be empty")
	}
	switch c.Backend {
	case BackendFile:
		if c.StatePath == "" {
			return errors.New("state path cannot be empty")
		}
	case BackendS3:
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			return errors.New("s3 snapshot backend requires s3-endpoint and s3-bucket")
		}
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.Backend)
	}
	return nil
}

// Snapshotter builds the persistence store selected by the configuration
func (c *Config) Snapshotter() (storage.Snapshotter, error) {
	if c.Backend == BackendS3 {
		return storage.NewObjectSnapshotter(c.S3)
	}
	return storage.NewFileSnapshotter(c.StatePath), nil
}
