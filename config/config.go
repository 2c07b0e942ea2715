package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Scraper ScraperConfig
	Finder  FinderConfig
	Login   LoginConfig
	Storage StorageConfig
	S3      S3Config
	Daemon  DaemonConfig

	ProxyList  string
	CookieFile string
	LogLevel   string
	LogFile    string
}

type ScraperConfig struct {
	MaxParallel     int
	PostsPerSession int
	MaxScrolls      int

	StaggerMax     time.Duration
	NavTimeout     time.Duration
	SettlePauseMin time.Duration
	SettlePauseMax time.Duration
	ScrollPauseMin time.Duration
	ScrollPauseMax time.Duration

	Headless   bool
	UserAgents []string
}

type FinderConfig struct {
	HarvestWorkers int
	VerifyWorkers  int
	FetchTimeout   time.Duration
	BasicTimeout   time.Duration
	TargetTimeout  time.Duration
	Output         string
}

type LoginConfig struct {
	Timeout time.Duration
}

type StorageConfig struct {
	SQLitePath  string
	PostgresDSN string // empty disables the Postgres archive
}

type S3Config struct {
	Bucket          string // empty disables media mirroring
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type DaemonConfig struct {
	JobsFile string
	Jobs     []Job
}

// Job is one scheduled scrape, loaded from the daemon's YAML jobs file.
type Job struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"` // cron expression
	Mode     string `yaml:"mode"`     // search, top, user, replies, likes, thread, hashtag, home
	Query    string `yaml:"query"`
	Limit    int    `yaml:"limit"`
}

// Chrome 122 desktop agents; sessions pick one at random per context.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.0.0",
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Scraper: ScraperConfig{
			MaxParallel:     getEnvInt("MAX_PARALLEL_SESSIONS", 5),
			PostsPerSession: getEnvInt("POSTS_PER_SESSION", 50),
			MaxScrolls:      getEnvInt("MAX_SCROLLS", 5),
			StaggerMax:      getEnvDuration("SESSION_STAGGER_MAX", 30*time.Second),
			NavTimeout:      getEnvDuration("NAV_TIMEOUT", 30*time.Second),
			SettlePauseMin:  getEnvDuration("SETTLE_PAUSE_MIN", 2*time.Second),
			SettlePauseMax:  getEnvDuration("SETTLE_PAUSE_MAX", 4*time.Second),
			ScrollPauseMin:  getEnvDuration("SCROLL_PAUSE_MIN", 2*time.Second),
			ScrollPauseMax:  getEnvDuration("SCROLL_PAUSE_MAX", 5*time.Second),
			Headless:        getEnvBool("HEADLESS", true),
			UserAgents:      defaultUserAgents,
		},
		Finder: FinderConfig{
			HarvestWorkers: getEnvInt("FINDER_HARVEST_WORKERS", 50),
			VerifyWorkers:  getEnvInt("FINDER_VERIFY_WORKERS", 100),
			FetchTimeout:   getEnvDuration("FINDER_FETCH_TIMEOUT", 15*time.Second),
			BasicTimeout:   getEnvDuration("FINDER_BASIC_TIMEOUT", 10*time.Second),
			TargetTimeout:  getEnvDuration("FINDER_TARGET_TIMEOUT", 15*time.Second),
			Output:         getEnv("FINDER_OUTPUT", "proxies.json"),
		},
		Login: LoginConfig{
			Timeout: getEnvDuration("LOGIN_TIMEOUT", 5*time.Minute),
		},
		Storage: StorageConfig{
			SQLitePath:  getEnv("DB_PATH", "xscraper.db"),
			PostgresDSN: os.Getenv("POSTGRES_DSN"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		Daemon: DaemonConfig{
			JobsFile: getEnv("JOBS_FILE", "jobs.yaml"),
		},
		ProxyList:  getEnv("PROXY_LIST", "proxies.json"),
		CookieFile: getEnv("COOKIE_FILE", "cookies.json"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    getEnv("LOG_FILE", "xscraper.log"),
	}

	// User agents contain commas, so the override is pipe-separated.
	if agents := os.Getenv("USER_AGENTS"); agents != "" {
		var list []string
		for _, part := range strings.Split(agents, "|") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
		if len(list) > 0 {
			cfg.Scraper.UserAgents = list
		}
	}

	return cfg, nil
}

// LoadJobs reads the daemon jobs file into cfg. A missing file is not an
// error; the daemon just idles.
func (c *Config) LoadJobs() error {
	data, err := os.ReadFile(c.Daemon.JobsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var doc struct {
		Jobs []Job `yaml:"jobs"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", c.Daemon.JobsFile, err)
	}

	for i := range doc.Jobs {
		if doc.Jobs[i].Limit <= 0 {
			doc.Jobs[i].Limit = c.Scraper.PostsPerSession
		}
	}
	c.Daemon.Jobs = doc.Jobs

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
