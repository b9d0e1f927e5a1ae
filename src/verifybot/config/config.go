package config

import (
	"log"
	"os"
	"strconv"

	"github.com/fanhaven/purchasegate/src/verifybot/types"
	"gorm.io/gorm"
)

type Config struct {
	Token           string
	GuildID         string
	VerifiedRoleID  string
	VerifyChannelID string
	DeferAck        bool
	OpsPort         string
	OpsJWTSecret    string
	OpsAdminKey     string
	RedisURL        string
}

// Load reads the settings table and returns an immutable config value for the
// process lifetime. Environment variables act as fallbacks for every setting.
func Load(db *gorm.DB) Config {
	settings, err := loadSettings(db)
	if err != nil {
		log.Printf("config: failed to load settings: %v", err)
		settings = map[string]string{}
	}

	get := func(name, env string) string {
		if v := settings[name]; v != "" {
			return v
		}
		return os.Getenv(env)
	}

	cfg := Config{
		Token:           get("discord_token", "DISCORD_TOKEN"),
		GuildID:         get("guild_id", "GUILD_ID"),
		VerifiedRoleID:  get("verified_role_id", "VERIFIED_ROLE_ID"),
		VerifyChannelID: get("verify_channel_id", "VERIFY_CHANNEL_ID"),
		OpsPort:         get("ops_port", "OPS_PORT"),
		OpsJWTSecret:    get("ops_jwt_secret", "OPS_JWT_SECRET"),
		OpsAdminKey:     get("ops_admin_key", "OPS_ADMIN_KEY"),
		RedisURL:        getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
	}

	if cfg.OpsPort == "" {
		cfg.OpsPort = "8090"
	}

	// Acknowledge interactions before storefront I/O unless disabled.
	cfg.DeferAck = true
	if v := get("defer_ack", "DEFER_ACK"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.DeferAck = parsed
		}
	}

	return cfg
}

func loadSettings(db *gorm.DB) (map[string]string, error) {
	var settings []types.Setting
	if err := db.Find(&settings).Error; err != nil {
		return nil, err
	}

	out := make(map[string]string, len(settings))
	for _, s := range settings {
		out[s.Name] = s.Value
	}

	return out, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
