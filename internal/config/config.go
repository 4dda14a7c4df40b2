package config

import (
	"strings"
	"time"

	"exstream/internal/exchange"
	"exstream/pkg/conn"
	"exstream/pkg/websocket"

	"github.com/spf13/viper"
	"github.com/yanun0323/errors"
)

const EnvPrefix = "EXSTREAM"

type Config struct {
	Cache     Cache     `mapstructure:"cache"`
	OrderBook OrderBook `mapstructure:"orderbook"`
	WebSocket WebSocket `mapstructure:"websocket"`
	Watch     Watch     `mapstructure:"watch"`
	Binance   Binance   `mapstructure:"binance"`
	OKX       OKX       `mapstructure:"okx"`
	Redis     Redis     `mapstructure:"redis"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Postgres  Postgres  `mapstructure:"postgres"`
	Profiling Profiling `mapstructure:"profiling"`
}

type Cache struct {
	Trades    int `mapstructure:"trades"`
	MyTrades  int `mapstructure:"mytrades"`
	Orders    int `mapstructure:"orders"`
	Positions int `mapstructure:"positions"`
}

func (c Cache) Capacity() exchange.Capacity {
	return exchange.Capacity{
		Trades:    c.Trades,
		MyTrades:  c.MyTrades,
		Orders:    c.Orders,
		Positions: c.Positions,
	}
}

type OrderBook struct {
	Depth             int `mapstructure:"depth"`
	MaxPending        int `mapstructure:"max_pending"`
	MaxResyncAttempts int `mapstructure:"max_resync_attempts"`
}

type WebSocket struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	WriteQueueSize int           `mapstructure:"write_queue_size"`
	ReadQueueSize  int           `mapstructure:"read_queue_size"`
	BackoffMin     time.Duration `mapstructure:"backoff_min"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
	BackoffFactor  float64       `mapstructure:"backoff_factor"`
	BackoffJitter  float64       `mapstructure:"backoff_jitter"`
}

// Option returns the session options shared by every socket.
func (c WebSocket) Option() websocket.Option {
	return websocket.Option{
		PingInterval:   c.PingInterval,
		WriteQueueSize: c.WriteQueueSize,
		ReadQueueSize:  c.ReadQueueSize,
		Backoff: websocket.Backoff{
			Min:    c.BackoffMin,
			Max:    c.BackoffMax,
			Factor: c.BackoffFactor,
			Jitter: c.BackoffJitter,
		},
	}
}

// Watch bounds what every watch loop asks for.
type Watch struct {
	Limit     int `mapstructure:"limit"`
	BookLimit int `mapstructure:"book_limit"`
}

type Binance struct {
	Enabled       bool     `mapstructure:"enabled"`
	Symbols       []string `mapstructure:"symbols"`
	WSURL         string   `mapstructure:"ws_url"`
	RESTURL       string   `mapstructure:"rest_url"`
	SnapshotLimit int      `mapstructure:"snapshot_limit"`
}

type OKX struct {
	Enabled    bool     `mapstructure:"enabled"`
	Symbols    []string `mapstructure:"symbols"`
	PublicURL  string   `mapstructure:"public_url"`
	PrivateURL string   `mapstructure:"private_url"`
	APIKey     string   `mapstructure:"api_key"`
	Secret     string   `mapstructure:"secret"`
	Passphrase string   `mapstructure:"passphrase"`
}

// HasCredential reports whether the private socket can log in.
func (c OKX) HasCredential() bool {
	return c.APIKey != "" && c.Secret != "" && c.Passphrase != ""
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c Redis) Enabled() bool {
	return c.Addr != ""
}

type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

func (c Kafka) Enabled() bool {
	return len(c.Brokers) != 0 && c.Topic != ""
}

type Postgres struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslmode"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BatchSize       int           `mapstructure:"batch_size"`
}

func (c Postgres) Option() conn.PostgresOption {
	return conn.PostgresOption{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Database,
		SSLMode:         c.SSLMode,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

type Profiling struct {
	Enabled         bool   `mapstructure:"enabled"`
	ServerAddress   string `mapstructure:"server_address"`
	ApplicationName string `mapstructure:"application_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.trades", 1000)
	v.SetDefault("cache.mytrades", 1000)
	v.SetDefault("cache.orders", 1000)
	v.SetDefault("cache.positions", 1000)

	v.SetDefault("orderbook.depth", 0)
	v.SetDefault("orderbook.max_pending", 1000)
	v.SetDefault("orderbook.max_resync_attempts", 3)

	v.SetDefault("websocket.ping_interval", 15*time.Second)
	v.SetDefault("websocket.write_queue_size", 1024)
	v.SetDefault("websocket.read_queue_size", 4096)
	v.SetDefault("websocket.backoff_min", 250*time.Millisecond)
	v.SetDefault("websocket.backoff_max", 5*time.Second)
	v.SetDefault("websocket.backoff_factor", 2.0)
	v.SetDefault("websocket.backoff_jitter", 0.2)

	v.SetDefault("watch.limit", 100)
	v.SetDefault("watch.book_limit", 20)

	v.SetDefault("binance.enabled", true)
	v.SetDefault("binance.symbols", []string{"BTC/USDT"})
	v.SetDefault("binance.ws_url", "wss://stream.binance.com:9443/ws")
	v.SetDefault("binance.rest_url", "https://api.binance.com")
	v.SetDefault("binance.snapshot_limit", 1000)

	v.SetDefault("okx.enabled", false)
	v.SetDefault("okx.symbols", []string{"BTC/USDT"})
	v.SetDefault("okx.public_url", "wss://ws.okx.com:8443/ws/v5/public")
	v.SetDefault("okx.private_url", "wss://ws.okx.com:8443/ws/v5/private")
	v.SetDefault("okx.api_key", "")
	v.SetDefault("okx.secret", "")
	v.SetDefault("okx.passphrase", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "trades")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.database", "exstream")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 2)
	v.SetDefault("postgres.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("postgres.batch_size", 500)

	v.SetDefault("profiling.enabled", false)
	v.SetDefault("profiling.server_address", "http://localhost:4040")
	v.SetDefault("profiling.application_name", "exstream.streamd")
}

// Load reads the optional config file at path, then overrides it with EXSTREAM_*
// environment variables, e.g. EXSTREAM_OKX_API_KEY for okx.api_key.
// List values read from the environment are comma separated.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrap(err, "read config").With("path", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}
