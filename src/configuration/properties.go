package configuration

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type (
	Properties struct {
		LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`

		Auth     AuthProperties       `envPrefix:"AUTH_"`
		S3       S3Properties         `envPrefix:"S3_"`
		Server   HttpServerProperties `envPrefix:"HTTP_"`
		Pipeline PipelineProperties   `envPrefix:"PIPELINE_"`
		DB       DBProperties         `envPrefix:"DB_"`
	}

	AuthProperties struct {
		Issuer                string `env:"ISSUER" envDefault:"https://auth.almostcrackd.ai/auth/v1"`
		ClientID              string `env:"CLIENT_ID"`
		AccessTokenCookieName string `env:"ACCESS_COOKIE" envDefault:"sb-access-token"`
		IDTokenCookieName     string `env:"ID_COOKIE" envDefault:"sb-id-token"`
		RefreshCookieName     string `env:"REFRESH_COOKIE" envDefault:"sb-refresh-token"`
		CookieDomain          string `env:"COOKIE_DOMAIN" envDefault:"localhost"`
		// Accepts unsigned tokens from the issuer. Local development only.
		InsecureSkipSignature bool `env:"INSECURE_SKIP_SIGNATURE" envDefault:"false"`
	}

	HttpServerProperties struct {
		Name           string        `env:"NAME" envDefault:"capserv"`
		Port           string        `env:"PORT" envDefault:"8088"`
		Mode           string        `env:"MODE" envDefault:"release"`
		ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
		MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
		Pprof          bool          `env:"PPROF" envDefault:"false"`
		AllowOrigins   []string      `env:"ALLOW_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	}

	PipelineProperties struct {
		BaseURL        string        `env:"BASE_URL" envDefault:"https://api.almostcrackd.ai"`
		Timeout        time.Duration `env:"TIMEOUT" envDefault:"60s"`
		PresignBackend string        `env:"PRESIGN_BACKEND" envDefault:"remote"`
		ContentTypes   []string      `env:"CONTENT_TYPES" envSeparator:"," envDefault:"image/jpeg,image/jpg,image/png,image/webp,image/gif,image/heic"`
	}

	S3Properties struct {
		Host       string        `env:"HOST" envDefault:"localhost:9000"`
		AccessKey  string        `env:"ACCESS_KEY"`
		SecretKey  string        `env:"SECRET_KEY"`
		Bucket     string        `env:"BUCKET" envDefault:"captions"`
		UseSSL     bool          `env:"USE_SSL" envDefault:"true"`
		PublicURL  string        `env:"PUBLIC_URL" envDefault:"https://localhost:9000"`
		PresignTTL time.Duration `env:"PRESIGN_TTL" envDefault:"15m"`
	}

	DBProperties struct {
		DSN             string        `env:"DSN"`
		MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
		MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
		ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
		ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"30m"`
		AutoMigrate     bool          `env:"AUTO_MIGRATE" envDefault:"false"`
		CaptionLimit    int           `env:"CAPTION_LIMIT" envDefault:"12"`
		RecentVoteLimit int           `env:"RECENT_VOTE_LIMIT" envDefault:"8"`
	}
)

const (
	PresignRemote = "remote"
	PresignMinio  = "minio"
)

// ReadProperties loads an optional .env file and parses the environment.
func ReadProperties() (*Properties, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "event", "config_dotenv_missing", "error", err.Error())
	}
	return Parse()
}

// Parse reads Properties from the process environment only.
func Parse() (*Properties, error) {
	config := &Properties{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (p *Properties) validate() error {
	switch p.Pipeline.PresignBackend {
	case PresignRemote, PresignMinio:
	default:
		return fmt.Errorf("unknown presign backend %q", p.Pipeline.PresignBackend)
	}
	switch p.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown http mode %q", p.Server.Mode)
	}
	if strings.TrimSpace(p.Pipeline.BaseURL) == "" {
		return fmt.Errorf("pipeline base url is required")
	}
	if len(p.Pipeline.ContentTypes) == 0 {
		return fmt.Errorf("at least one supported content type is required")
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (p *Properties) SlogLevel() slog.Level {
	switch strings.ToUpper(strings.TrimSpace(p.LogLevel)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
