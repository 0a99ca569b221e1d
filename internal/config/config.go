package config

import (
	"os"
	"strconv"
)

type Config struct {
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	ReportCacheTTLSeconds int
	AssemblyThreshold     int
	NonSellingDays        int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("REPORT_CACHE_TTL_SECONDS", "60"))
	if err != nil || ttl < 1 {
		ttl = 60
	}
	assembly, err := strconv.Atoi(getEnv("ASSEMBLY_THRESHOLD", "5"))
	if err != nil || assembly < 0 {
		assembly = 5
	}
	nonSelling, err := strconv.Atoi(getEnv("NON_SELLING_DAYS", "30"))
	if err != nil || nonSelling < 1 {
		nonSelling = 30
	}

	cfg := Config{
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		ReportCacheTTLSeconds: ttl,
		AssemblyThreshold:     assembly,
		NonSellingDays:        nonSelling,
	}

	return cfg
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
