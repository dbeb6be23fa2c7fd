package settings

import (
	"log"
	"time"
	_ "time/tzdata" // display zones must resolve without system tzdata

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// consts
const (
	Name = "Beeview"
)

// Config ...
type Config struct {
	Name    string `ignored:"true"`
	Version string `ignored:"true"`

	Debug        bool     `envconfig:"DEBUG"`
	HTTPListen   string   `envconfig:"HTTP_LISTEN" default:":5001"`
	AllowOrigins []string `envconfig:"allow_origins" default:"*"` // CORS: 允许的 Origin 调用来源
	RateLimit    string   `envconfig:"RATE_LIMIT" default:"30-S"`
	CookieName   string   `envconfig:"Cookie_Name" default:"beeview_sid"`
	CookiePath   string   `envconfig:"Cookie_Path" default:"/"`

	BeeAPIBase string        `envconfig:"BEE_API_BASE" default:"https://api.bee.computer"`
	BeeTimeout time.Duration `envconfig:"BEE_TIMEOUT" default:"30s"`
	PageSize   int           `envconfig:"PAGE_SIZE" default:"15"`
	TimeZone   string        `envconfig:"TIME_ZONE" default:"US/Pacific"`

	SessionStore string `envconfig:"SESSION_STORE" default:"memory"` // memory | redis
	RedisURI     string `envconfig:"redis_uri" default:"redis://localhost:6379/1"`

	LLMProvider  string `envconfig:"LLM_PROVIDER" default:"openai"` // openai | gemini
	LLMAPIBase   string `envconfig:"LLM_API_BASE" default:"https://router.huggingface.co/v1"`
	LLMAPIKey    string `envconfig:"LLM_API_KEY"`
	LLMModel     string `envconfig:"LLM_MODEL" default:"HuggingFaceH4/zephyr-7b-beta"`
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	PresetFile   string `envconfig:"preset_file"`
	EventLogSize int    `envconfig:"EVENT_LOG_SIZE" default:"200"`
}

var (
	// Current 当前配置
	Current = new(Config)
)

func init() {
	_ = godotenv.Load()
	if err := envconfig.Process(Name, Current); err != nil {
		log.Printf("envconfig process fail: %s", err)
	}

	Current.Name = Name
	Current.Version = version
}

// Usage 打印配置帮助
func Usage() error {
	log.Printf("ver: %s", Current.Version)
	return envconfig.Usage(Current.Name, Current)
}

// InDevelop ...
func InDevelop() bool {
	return Current.Debug
}

// AllowAllOrigins ...
func AllowAllOrigins() bool {
	return 0 == len(Current.AllowOrigins) ||
		1 == len(Current.AllowOrigins) && Current.AllowOrigins[0] == "*"
}

// Location resolves name into a display location, falling back to the configured
// zone and then UTC.
func Location(name string) *time.Location {
	for _, n := range []string{name, Current.TimeZone} {
		if len(n) == 0 {
			continue
		}
		if loc, err := time.LoadLocation(n); err == nil {
			return loc
		}
	}
	return time.UTC
}
