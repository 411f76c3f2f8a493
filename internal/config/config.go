package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Port string `mapstructure:"port"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"app"`
	API struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"api"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers      []string `mapstructure:"brokers"`
		ContentTopic string   `mapstructure:"content_topic"`
		GroupID      string   `mapstructure:"group_id"`
	} `mapstructure:"kafka"`
	Session struct {
		CookieName string        `mapstructure:"cookie_name"`
		TTL        time.Duration `mapstructure:"ttl"`
		Secure     bool          `mapstructure:"secure"`
		TokenFile  string        `mapstructure:"token_file"`
	} `mapstructure:"session"`
	Site struct {
		Title       string        `mapstructure:"title"`
		URL         string        `mapstructure:"url"`
		Author      string        `mapstructure:"author"`
		CacheTTL    time.Duration `mapstructure:"cache_ttl"`
		MemoryTTL   time.Duration `mapstructure:"memory_ttl"`
		FeedLimit   int           `mapstructure:"feed_limit"`
		Description string        `mapstructure:"description"`
	} `mapstructure:"site"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"cors"`
	Jaeger struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"jaeger"`
}

// LoadConfig reads .env, then config.yaml from paths (default "."), then the environment.
func LoadConfig(paths ...string) (cfg Config, err error) {

	err = godotenv.Load()
	if err != nil {
		log.Println("warning: .env file not found, use default.")
	}

	v := viper.New()
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err = v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read .env only. Error: %v", err)
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("app.port", "APP_PORT")
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("api.base_url", "API_BASE_URL")
	v.BindEnv("api.timeout", "API_TIMEOUT")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.content_topic", "KAFKA_CONTENT_TOPIC")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("session.cookie_name", "SESSION_COOKIE_NAME")
	v.BindEnv("session.ttl", "SESSION_TTL")
	v.BindEnv("session.secure", "SESSION_SECURE")
	v.BindEnv("session.token_file", "SESSION_TOKEN_FILE")
	v.BindEnv("site.title", "SITE_TITLE")
	v.BindEnv("site.url", "SITE_URL")
	v.BindEnv("site.author", "SITE_AUTHOR")
	v.BindEnv("site.cache_ttl", "SITE_CACHE_TTL")
	v.BindEnv("cors.allowed_origins", "CORS_ALLOWED_ORIGINS")
	v.BindEnv("jaeger.otlp_endpoint", "JAEGER_OTLP_ENDPOINT")

	err = v.Unmarshal(&cfg)
	if err != nil {
		return
	}
	cfg.Kafka.Brokers = splitCSV(cfg.Kafka.Brokers)
	cfg.CORS.AllowedOrigins = splitCSV(cfg.CORS.AllowedOrigins)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("api.base_url", "http://localhost:5000/api")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("kafka.content_topic", "content_changed")
	v.SetDefault("kafka.group_id", "site-cache-invalidator")
	v.SetDefault("session.cookie_name", "console_session")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.token_file", "~/.folioctl/token")
	v.SetDefault("site.title", "Portfolio")
	v.SetDefault("site.cache_ttl", 5*time.Minute)
	v.SetDefault("site.memory_ttl", 30*time.Second)
	v.SetDefault("site.feed_limit", 20)
}

// splitCSV expands entries given as one comma separated env value.
func splitCSV(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
