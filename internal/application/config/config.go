package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pion/webrtc/v4"
)

type Config struct {
	Debug      bool   `env:"DEBUG" envDefault:"false"`
	Port       string `env:"PORT" envDefault:"8888"`
	MetricPort string `env:"METRIC_PORT" envDefault:"9091"`
	Domain     string `env:"DOMAIN" envDefault:"http://localhost:8888"`

	// StoreBackend selects "memory" (single process, volatile) or
	// "external" (postgres registry + redis queues).
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`

	QueueCap int           `env:"QUEUE_CAP" envDefault:"1000"`
	QueueTTL time.Duration `env:"QUEUE_TTL" envDefault:"24h"`

	StunServers []string `env:"STUN_SERVERS" envSeparator:"," envDefault:"stun:stun.l.google.com:19302,stun:stun1.l.google.com:19302,stun:stun.miwifi.com:3478,stun:stun.qq.com:3478"`

	IceServers []webrtc.ICEServer

	CoturnServer CoturnConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
}

type PostgresConfig struct {
	URL string `env:"POSTGRES_URL"`

	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	Name     string `env:"POSTGRES_NAME" envDefault:"haiguitang"`
	SSL      string `env:"POSTGRES_SSL" envDefault:"disable"`
}

func (p *PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}

	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Name,
		p.SSL,
	)
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type CoturnConfig struct {
	Host     string `env:"COTURN_HOST"`
	Username string `env:"COTURN_USERNAME"`
	Password string `env:"COTURN_PASSWORD"`

	// Secret signs short-lived TURN credentials handed to browsers.
	Secret string `env:"COTURN_SECRET"`
}

func New() (*Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	for _, url := range c.StunServers {
		c.IceServers = append(c.IceServers, webrtc.ICEServer{URLs: []string{url}})
	}

	if c.CoturnServer.Host != "" {
		c.IceServers = append(c.IceServers,
			webrtc.ICEServer{
				URLs:       []string{fmt.Sprintf("turn:%s?transport=udp", c.CoturnServer.Host)},
				Username:   c.CoturnServer.Username,
				Credential: c.CoturnServer.Password,
			},
			webrtc.ICEServer{
				URLs:       []string{fmt.Sprintf("turn:%s?transport=tcp", c.CoturnServer.Host)},
				Username:   c.CoturnServer.Username,
				Credential: c.CoturnServer.Password,
			},
		)
	}

	return &c, nil
}
