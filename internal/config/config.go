package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	TZ       string
	HTTPAddr string

	// Optional: when empty the audit repository is disabled entirely.
	DBDSN string

	JiraDomainSuffix string
	JiraTimeout      time.Duration
	JiraPageSize     int

	// Optional cron spec for scheduled tracker refresh, e.g. "0 * * * *".
	RefreshCron string

	OpenAIKey     string
	OpenAIModel   string
	OpenAITimeout time.Duration

	LookbackDays   int
	MaxTeamMembers int
	MaxUploadBytes int64
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" { return def }
	return v
}

func atoi(key string, def int) int {
	v := os.Getenv(key)
	if v == "" { return def }
	i, err := strconv.Atoi(v)
	if err != nil { return def }
	return i
}

func atoi64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" { return def }
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil { return def }
	return i
}

func dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" { return def }
	d, err := time.ParseDuration(v)
	if err != nil { return def }
	return d
}

func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:   getenv("APP_ENV", "dev"),
		TZ:       getenv("APP_TZ", "UTC"),
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		DBDSN: getenv("DB_DSN", ""),

		JiraDomainSuffix: getenv("JIRA_DOMAIN_SUFFIX", ".atlassian.net"),
		JiraTimeout:      dur("JIRA_TIMEOUT", 30*time.Second),
		JiraPageSize:     atoi("JIRA_PAGE_SIZE", 100),

		RefreshCron: getenv("REFRESH_CRON", ""),

		OpenAIKey:     getenv("OPENAI_API_KEY", ""),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4.1-mini"),
		OpenAITimeout: dur("OPENAI_TIMEOUT", 15*time.Second),

		LookbackDays:   atoi("LOOKBACK_DAYS", 30),
		MaxTeamMembers: atoi("MAX_TEAM_MEMBERS", 10),
		MaxUploadBytes: atoi64("MAX_UPLOAD_BYTES", 16<<20),
	}

	if loc, err := time.LoadLocation(cfg.TZ); err == nil {
		time.Local = loc
	}
	return cfg
}
