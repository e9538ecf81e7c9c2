package auth_gateway_config

import (
	"time"

	"github.com/NordCoder/AuthGate/internal/obs"
	pg "github.com/NordCoder/AuthGate/internal/repository/postgres"
	"github.com/NordCoder/AuthGate/internal/services/notifier"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Auth carries the four independent token secrets and TTLs plus the
// credential-hash cost. Secrets have no defaults; startup fails when one is
// missing.
type Auth struct {
	AccessSecret   string `mapstructure:"access_secret"`
	RefreshSecret  string `mapstructure:"refresh_secret"`
	ActivateSecret string `mapstructure:"activate_secret"`
	ResetSecret    string `mapstructure:"reset_secret"`

	AccessTTL   time.Duration `mapstructure:"access_ttl"`
	RefreshTTL  time.Duration `mapstructure:"refresh_ttl"`
	ActivateTTL time.Duration `mapstructure:"activate_ttl"`
	ResetTTL    time.Duration `mapstructure:"reset_ttl"`

	BcryptCost           int  `mapstructure:"bcrypt_cost"`
	RequireVerifiedLogin bool `mapstructure:"require_verified_login"`
}

type Kafka struct {
	Enable  bool     `mapstructure:"enable"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Config struct {
	App    App                 `mapstructure:"app"`
	Server Server              `mapstructure:"server"`
	DB     pg.Config           `mapstructure:"db"`
	OTEL   OTEL                `mapstructure:"otel"`
	Log    Log                 `mapstructure:"log"`
	Auth   Auth                `mapstructure:"auth"`
	SMTP   notifier.SMTPConfig `mapstructure:"smtp"`
	Kafka  Kafka               `mapstructure:"kafka"`
}
