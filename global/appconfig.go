package global

import "time"

const (
	AuthSelfAsserted = "self_asserted" // 信任帧里的 user_id
	AuthToken        = "token"         // 校验 HTTP 层签发的 JWT

	DirectoryNone     = "none"
	DirectoryPostgres = "postgres"
	DirectoryMongo    = "mongo"
)

type AppConfig struct {
	NodeID    int64           `yaml:"node_id"` // 雪花 id 节点号，同时写进 redis 在线表
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Relay     RelayConfig     `yaml:"relay"`
	Auth      AuthConfig      `yaml:"auth"`
	Directory DirectoryConfig `yaml:"directory"`
	Redis     RedisConfig     `yaml:"redis"`
	NATS      NATSConfig      `yaml:"nats"`
	Log       LogConfig       `yaml:"log"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"` // 空则不启动 health 服务
}

type RelayConfig struct {
	MaxMessageSize int64           `yaml:"max_message_size"`
	SendQueueSize  int             `yaml:"send_queue_size"`
	WriteWait      time.Duration   `yaml:"write_wait"`
	SendTimeout    time.Duration   `yaml:"send_timeout"`
	PingInterval   time.Duration   `yaml:"ping_interval"`
	PongWait       time.Duration   `yaml:"pong_wait"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	Burst          int           `yaml:"burst"` // <=0 关闭限流
	RefillInterval time.Duration `yaml:"refill_interval"`
}

type AuthConfig struct {
	Mode      string `yaml:"mode"`
	JWTSecret string `yaml:"jwt_secret"`
	JWTAlg    string `yaml:"jwt_alg"`
}

type DirectoryConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`       // postgres
	MongoURI string `yaml:"mongo_uri"` // mongo
	Database string `yaml:"database"`
	// 在线状态回写 users.status（仅 postgres）
	WriteStatus bool `yaml:"write_status"`
}

type RedisConfig struct {
	Addr        string        `yaml:"addr"` // 空则不启用
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PresenceTTL time.Duration `yaml:"presence_ttl"`
}

type NATSConfig struct {
	Servers []string `yaml:"servers"` // 空则不启用
	Subject string   `yaml:"subject"`
	Name    string   `yaml:"name"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}
