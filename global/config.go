package global

import (
	"os"
	"strings"
	"time"

	"PPRelay/tools"
	"PPRelay/tools/security"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load 读取配置：yaml 文件（可选）→ 环境变量覆盖 → 默认值 → 校验。
// path 为空时只用环境变量和默认值。
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	cfg.NodeID = int64(tools.GetEnvInt("NODE_ID", int(cfg.NodeID)))
	cfg.HTTP.Addr = tools.GetEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.AllowedOrigins = tools.GetEnvList("ALLOWED_ORIGINS", cfg.HTTP.AllowedOrigins)
	cfg.GRPC.Addr = tools.GetEnv("GRPC_ADDR", cfg.GRPC.Addr)

	cfg.Relay.MaxMessageSize = int64(tools.GetEnvInt("MAX_MESSAGE_SIZE", int(cfg.Relay.MaxMessageSize)))
	cfg.Relay.RateLimit.Burst = tools.GetEnvInt("RATE_LIMIT_BURST", cfg.Relay.RateLimit.Burst)
	cfg.Relay.RateLimit.RefillInterval = tools.GetEnvDuration("RATE_LIMIT_REFILL_INTERVAL", cfg.Relay.RateLimit.RefillInterval)

	cfg.Auth.Mode = tools.GetEnv("AUTH_MODE", cfg.Auth.Mode)
	cfg.Auth.JWTSecret = tools.GetEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTAlg = tools.GetEnv("JWT_ALG", cfg.Auth.JWTAlg)

	// DATABASE_URL / MONGO_URI 同时决定 directory driver
	if dsn := tools.GetEnv("DATABASE_URL", ""); dsn != "" {
		cfg.Directory.DSN = dsn
		if cfg.Directory.Driver == "" {
			cfg.Directory.Driver = DirectoryPostgres
		}
	}
	if uri := tools.GetEnv("MONGO_URI", ""); uri != "" {
		cfg.Directory.MongoURI = uri
		if cfg.Directory.Driver == "" {
			cfg.Directory.Driver = DirectoryMongo
		}
	}
	cfg.Directory.Driver = tools.GetEnv("DIRECTORY_DRIVER", cfg.Directory.Driver)
	cfg.Directory.WriteStatus = tools.GetEnvBool("DIRECTORY_WRITE_STATUS", cfg.Directory.WriteStatus)

	cfg.Redis.Addr = tools.GetEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = tools.GetEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = tools.GetEnvInt("REDIS_DB", cfg.Redis.DB)

	cfg.NATS.Servers = tools.GetEnvList("NATS_URL", cfg.NATS.Servers)
	cfg.NATS.Subject = tools.GetEnv("NATS_SUBJECT", cfg.NATS.Subject)

	cfg.Log.Level = tools.GetEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.JSON = tools.GetEnvBool("LOG_JSON", cfg.Log.JSON)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.NodeID == 0 {
		cfg.NodeID = 1
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}

	r := &cfg.Relay
	if r.MaxMessageSize <= 0 {
		r.MaxMessageSize = 64 << 10
	}
	if r.SendQueueSize <= 0 {
		r.SendQueueSize = 256
	}
	if r.WriteWait <= 0 {
		r.WriteWait = 10 * time.Second
	}
	if r.SendTimeout <= 0 {
		r.SendTimeout = 2 * time.Second
	}
	if r.PongWait <= 0 {
		r.PongWait = 60 * time.Second
	}
	if r.PingInterval <= 0 {
		r.PingInterval = r.PongWait * 9 / 10
	}
	if r.RateLimit.RefillInterval <= 0 {
		r.RateLimit.RefillInterval = 100 * time.Millisecond
	}

	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = AuthSelfAsserted
	}
	if cfg.Auth.JWTAlg == "" {
		cfg.Auth.JWTAlg = "HS256"
	}
	if cfg.Directory.Driver == "" {
		cfg.Directory.Driver = DirectoryNone
	}
	if cfg.Directory.Database == "" {
		cfg.Directory.Database = "ppchat"
	}
	if cfg.Redis.PresenceTTL <= 0 {
		cfg.Redis.PresenceTTL = 2 * time.Minute
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = "relay.presence"
	}
	if cfg.NATS.Name == "" {
		cfg.NATS.Name = "pprelay"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func (c *AppConfig) Validate() error {
	if c.NodeID < 0 || c.NodeID > 1023 {
		return errors.Errorf("node_id %d out of range 0~1023", c.NodeID)
	}
	switch c.Auth.Mode {
	case AuthSelfAsserted:
	case AuthToken:
		if strings.TrimSpace(c.Auth.JWTSecret) == "" {
			return errors.New("auth.mode=token requires jwt_secret")
		}
		if !security.ValidAlg(c.Auth.JWTAlg) {
			return errors.Errorf("unsupported jwt_alg %q", c.Auth.JWTAlg)
		}
	default:
		return errors.Errorf("unknown auth.mode %q", c.Auth.Mode)
	}
	switch c.Directory.Driver {
	case DirectoryNone:
	case DirectoryPostgres:
		if c.Directory.DSN == "" {
			return errors.New("directory.driver=postgres requires dsn")
		}
	case DirectoryMongo:
		if c.Directory.MongoURI == "" {
			return errors.New("directory.driver=mongo requires mongo_uri")
		}
	default:
		return errors.Errorf("unknown directory.driver %q", c.Directory.Driver)
	}
	if c.Directory.WriteStatus && c.Directory.Driver != DirectoryPostgres {
		return errors.New("directory.write_status is only supported with postgres")
	}
	if c.Relay.PingInterval >= c.Relay.PongWait {
		return errors.New("relay.ping_interval must be shorter than relay.pong_wait")
	}
	return nil
}

// JWTOptions builds the verifier options for token mode.
func (c *AppConfig) JWTOptions() security.Options {
	opts := security.DefaultOptions([]byte(c.Auth.JWTSecret))
	opts.Alg = c.Auth.JWTAlg
	return opts
}
