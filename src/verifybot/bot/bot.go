package bot

import (
	"log"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fanhaven/purchasegate/src/verifybot/components/entitlement"
	"github.com/fanhaven/purchasegate/src/verifybot/components/reconcile"
	"github.com/fanhaven/purchasegate/src/verifybot/components/storefront"
	"github.com/fanhaven/purchasegate/src/verifybot/components/verify"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Token           string
	GuildID         string
	VerifiedRoleID  string
	VerifyChannelID string
	DeferAck        bool
	Cooldown        time.Duration
	Registry        *storefront.Registry
	Mapper          *entitlement.Mapper
	Redis           *redis.Client
}

type Bot struct {
	session       *discordgo.Session
	config        Config
	verifyHandler *verify.Handler
}

func New(config Config) (*Bot, error) {
	// Create Discord session
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		session: dg,
		config:  config,
	}

	// Initialize components
	bot.initializeComponents()

	// Register handlers
	dg.AddHandler(bot.handleReady)
	dg.AddHandler(bot.verifyHandler.HandleInteraction)

	// Set intents; slash command interactions need nothing beyond guilds
	dg.Identify.Intents = discordgo.IntentsGuilds

	return bot, nil
}

func (b *Bot) initializeComponents() {
	granter := entitlement.NewDiscordGranter(b.session, b.config.GuildID)

	orchestrator := reconcile.NewOrchestrator(reconcile.Config{
		Registry:   b.config.Registry,
		Mapper:     b.config.Mapper,
		Granter:    granter,
		BaseRoleID: b.config.VerifiedRoleID,
		Redis:      b.config.Redis,
	})

	b.verifyHandler = verify.NewHandler(verify.Config{
		Orchestrator: orchestrator,
		Registry:     b.config.Registry,
		GuildID:      b.config.GuildID,
		ChannelID:    b.config.VerifyChannelID,
		DeferAck:     b.config.DeferAck,
		Cooldown:     b.config.Cooldown,
	})
}

func (b *Bot) Start() error {
	return b.session.Open()
}

func (b *Bot) Stop() {
	b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("Discord bot logged in as %s", event.User.Username)

	cmd := b.verifyHandler.Command()
	if _, err := s.ApplicationCommandCreate(s.State.User.ID, b.config.GuildID, cmd); err != nil {
		log.Printf("bot: failed to register %q command: %v", cmd.Name, err)
		return
	}
	log.Printf("bot: registered %q command for guild %s", cmd.Name, b.config.GuildID)
}
