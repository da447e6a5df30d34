package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	SecretKey   []byte
	DatabaseURL string
	ServerPort  string

	// MigrationsPath is the file source golang-migrate reads at boot.
	MigrationsPath string
)

// WechatConfig holds the mobile-payment gateway credentials. APIKey is the
// shared secret used for request signing and callback verification.
type WechatConfig struct {
	AppID        string
	MchID        string
	APIKey       string
	GatewayURL   string
	NotifyURL    string
	TipNotifyURL string
}

var Wechat WechatConfig

func Init() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" {
		log.Fatal("JWT secret key not set")
	}
	SecretKey = []byte(secret)

	DatabaseURL = os.Getenv("DATABASE_URL")
	if DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	ServerPort = os.Getenv("SERVER_PORT")
	if ServerPort == "" {
		ServerPort = ":8080"
	}

	MigrationsPath = os.Getenv("MIGRATIONS_PATH")
	if MigrationsPath == "" {
		MigrationsPath = "migrations"
	}

	Wechat = WechatConfig{
		AppID:        os.Getenv("WECHAT_APP_ID"),
		MchID:        os.Getenv("WECHAT_MCH_ID"),
		APIKey:       os.Getenv("WECHAT_API_KEY"),
		GatewayURL:   os.Getenv("WECHAT_GATEWAY_URL"),
		NotifyURL:    os.Getenv("PAYMENT_NOTIFY_URL"),
		TipNotifyURL: os.Getenv("TIP_NOTIFY_URL"),
	}
	if Wechat.GatewayURL == "" {
		Wechat.GatewayURL = "https://api.mch.weixin.qq.com/pay/unifiedorder"
	}
	if Wechat.AppID == "" || Wechat.MchID == "" || Wechat.APIKey == "" {
		log.Fatal("wechat payment credentials not set")
	}
}
