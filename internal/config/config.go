package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート
	PostgresSSLMode  string

	RedisAddr     string // redisホスト:ポート
	RedisPassword string

	JWTSecret  string // JWT署名シークレット
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	//ログイン失敗ロック
	MaxLoginFailures int
	LockoutWindow    time.Duration

	GoEnv string // dev/prod
	FEURL string // フロントURL（リダイレクト先やCORSで使う）

	//eSewa
	EsewaMerchantCode string
	EsewaPayURL       string // フォームPOST先
	EsewaVerifyURL    string // 取引照会エンドポイント

	//コールバックURLの組み立てに使う自分のベースURL
	APIBaseURL string

	//PENDING_PAYMENTの放置注文を掃除するまでの時間
	PendingPaymentTTL time.Duration

	LogFile string
}

// Loadは環境変数から設定を読む
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		AccessTTL:  durationEnv("ACCESS_TTL", 15*time.Minute),
		RefreshTTL: durationEnv("REFRESH_TTL", 14*24*time.Hour),

		MaxLoginFailures: intEnv("MAX_LOGIN_FAILURES", 5),
		LockoutWindow:    durationEnv("LOCKOUT_WINDOW", 15*time.Minute),

		GoEnv: os.Getenv("GO_ENV"),
		FEURL: os.Getenv("FE_URL"),

		EsewaMerchantCode: os.Getenv("ESEWA_MERCHANT_CODE"),
		EsewaPayURL:       getenv("ESEWA_PAY_URL", "https://uat.esewa.com.np/epay/main"),
		EsewaVerifyURL:    getenv("ESEWA_VERIFY_URL", "https://uat.esewa.com.np/epay/transrec"),

		APIBaseURL: os.Getenv("API_BASE_URL"),

		PendingPaymentTTL: durationEnv("PENDING_PAYMENT_TTL", time.Hour),

		LogFile: getenv("LOG_FILE", "./logs/app.log"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.PostgresUser == "" {
		return Config{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if cfg.PostgresDB == "" {
		return Config{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.PostgresHost == "" {
		return Config{}, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}
	if cfg.FEURL == "" {
		return Config{}, fmt.Errorf("FE_URL is required")
	}
	if cfg.EsewaMerchantCode == "" {
		return Config{}, fmt.Errorf("ESEWA_MERCHANT_CODE is required")
	}
	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("API_BASE_URL is required")
	}

	return cfg, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func getenv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
