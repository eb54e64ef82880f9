package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Milvus    MilvusConfig
	Neo4j     Neo4jConfig
	Retrieval RetrievalConfig
	Scoring   ScoringConfig
	Cache     CacheConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type MilvusConfig struct {
	Endpoint       string
	CollectionName string
}

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

type RetrievalConfig struct {
	Endpoint   string
	TimeoutSec int
}

type ScoringConfig struct {
	TicketWeight       float64
	KBWeight           float64
	CIWeight           float64
	CorroborationBoost float64
}

type CacheConfig struct {
	ResultTTLSec int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/helpdesk-assist")

	viper.SetEnvPrefix("HELPDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(cfg *Config) error {
	if cfg.Retrieval.TimeoutSec < 1 {
		return fmt.Errorf("retrieval.timeoutSec must be at least 1, got %d", cfg.Retrieval.TimeoutSec)
	}
	if cfg.Scoring.CorroborationBoost < 0 || cfg.Scoring.CorroborationBoost > 0.05 {
		return fmt.Errorf("scoring.corroborationBoost must be in [0, 0.05], got %.2f", cfg.Scoring.CorroborationBoost)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("sqlite.path", "./data/helpdesk.db")

	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "helpdesk_chunks")

	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "password")
	viper.SetDefault("neo4j.database", "neo4j")

	viper.SetDefault("retrieval.endpoint", "http://localhost:8090")
	viper.SetDefault("retrieval.timeoutSec", 20)

	viper.SetDefault("scoring.ticketWeight", 0.6)
	viper.SetDefault("scoring.kbWeight", 0.4)
	viper.SetDefault("scoring.ciWeight", 0.2)
	viper.SetDefault("scoring.corroborationBoost", 0.05)

	viper.SetDefault("cache.resultTTLSec", 300)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
