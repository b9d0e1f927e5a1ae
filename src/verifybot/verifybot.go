package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fanhaven/purchasegate/src/verifybot/bot"
	"github.com/fanhaven/purchasegate/src/verifybot/components/entitlement"
	"github.com/fanhaven/purchasegate/src/verifybot/components/storefront"
	"github.com/fanhaven/purchasegate/src/verifybot/config"
	"github.com/fanhaven/purchasegate/src/verifybot/data"
	"github.com/fanhaven/purchasegate/src/verifybot/types"
	"github.com/fanhaven/purchasegate/src/verifybot/webserver"
	"gorm.io/gorm"
)

func main() {
	// Connect to database first
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "verifybot:verifybot@tcp(127.0.0.1:3306)/verifybot"
	}
	db := data.MustMySQL(mysqlDSN)

	cfg := config.Load(db)
	if cfg.Token == "" {
		log.Fatal("discord_token not set in database or environment")
	}
	if cfg.GuildID == "" {
		log.Fatal("guild_id not set in database or environment")
	}
	if cfg.VerifiedRoleID == "" {
		log.Printf("WARNING: verified_role_id not set; the verified member role will not be granted")
	}

	rdb := data.MustRedis(cfg.RedisURL)

	registry, err := buildRegistry(db)
	if err != nil {
		log.Fatalf("Failed to load platforms: %v", err)
	}
	if len(registry.Platforms()) == 0 {
		log.Fatal("No active platforms configured")
	}

	mapper, err := entitlement.LoadMapper(db)
	if err != nil {
		log.Fatalf("Failed to load product mappings: %v", err)
	}

	b, err := bot.New(bot.Config{
		Token:           cfg.Token,
		GuildID:         cfg.GuildID,
		VerifiedRoleID:  cfg.VerifiedRoleID,
		VerifyChannelID: cfg.VerifyChannelID,
		DeferAck:        cfg.DeferAck,
		Registry:        registry,
		Mapper:          mapper,
		Redis:           rdb,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	if err := b.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	// Ops API
	router := webserver.New(webserver.Config{
		Port:      cfg.OpsPort,
		JWTSecret: cfg.OpsJWTSecret,
		AdminKey:  cfg.OpsAdminKey,
	}, registry, mapper, rdb)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.OpsPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Ops API listening on port %s", cfg.OpsPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	log.Println("verifybot is running. Press CTRL-C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)

	b.Stop()
	log.Println("verifybot stopped gracefully")
}

// buildRegistry creates one verifier per active platform row.
func buildRegistry(db *gorm.DB) (*storefront.Registry, error) {
	var platforms []types.Platform
	if err := db.Where("active = ?", true).Find(&platforms).Error; err != nil {
		return nil, err
	}

	var verifiers []storefront.Verifier
	for _, p := range platforms {
		switch p.Kind {
		case storefront.KindFlat:
			verifiers = append(verifiers, storefront.NewGumroad(p.Name, p.URL, p.APIKey))
		case storefront.KindOrders:
			verifiers = append(verifiers, storefront.NewJinxxy(p.Name, p.URL, p.APIKey))
		default:
			log.Printf("verifybot: platform %s has unknown kind %q, skipping", p.Name, p.Kind)
			continue
		}
		log.Printf("Loaded platform: %s (kind: %s)", p.Name, p.Kind)
	}

	return storefront.NewRegistry(verifiers...), nil
}
