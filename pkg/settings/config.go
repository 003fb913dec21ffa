package settings

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// consts
const (
	Name = "Campus"
)

// Config ...
type Config struct {
	Name    string `ignored:"true"`
	Version string `ignored:"true"`
	Develop bool   `envconfig:"DEVELOP"`

	HTTPListen     string        `envconfig:"HTTP_LISTEN" default:":5001"`
	PredictURL     string        `envconfig:"PREDICT_URL" default:"http://127.0.0.1:8000/predict"`
	PredictTimeout time.Duration `envconfig:"PREDICT_TIMEOUT" default:"60s"`

	HistoryStore string        `envconfig:"HISTORY_STORE" default:"sqlite"` // memory, sqlite, redis
	SqlitePath   string        `envconfig:"SQLITE_PATH" default:"campus-chat.db"`
	RedisURI     string        `envconfig:"REDIS_URI" default:"redis://localhost:6379/1"`
	HistoryKey   string        `envconfig:"HISTORY_KEY" default:"ustcAssistantChat"`
	HistoryLimit int           `envconfig:"HISTORY_LIMIT" default:"20"` // 重新加载时只保留最近的条数
	HistoryTTL   time.Duration `envconfig:"HISTORY_TTL" default:"24h"`
	PersistDelay time.Duration `envconfig:"PERSIST_DELAY" default:"500ms"` // 延迟保存，等待渲染完成

	PresetFile       string `envconfig:"PRESET_FILE"`
	ChatRateLimit    string `envconfig:"CHAT_RATE_LIMIT" default:"30-M"`
	MarkdownSanitize bool   `envconfig:"MARKDOWN_SANITIZE" default:"true"`

	AMapKey     string `envconfig:"AMAP_KEY"`
	AMapVersion string `envconfig:"AMAP_VERSION" default:"2.0"`

	AuthRequired bool   `envconfig:"AUTH_REQUIRED"`
	CookieName   string `envconfig:"Cookie_Name" default:"campus"`
	CookiePath   string `envconfig:"Cookie_Path" default:"/"`
	CookieDomain string `envconfig:"Cookie_Domain"`
}

var (
	// Current 当前配置
	Current = new(Config)
)

func init() {
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
	return Current.Develop
}
