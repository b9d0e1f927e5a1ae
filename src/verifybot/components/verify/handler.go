package verify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fanhaven/purchasegate/src/verifybot/components/reconcile"
	"github.com/fanhaven/purchasegate/src/verifybot/components/storefront"
	"github.com/microcosm-cc/bluemonday"
)

const CommandVerify = "verify"

// runTimeout caps one verification run end to end. Storefront calls carry
// their own per-request timeouts below this.
const runTimeout = 60 * time.Second

const defaultCooldown = 60 * time.Second

type Config struct {
	Orchestrator *reconcile.Orchestrator
	Registry     *storefront.Registry
	GuildID      string
	// ChannelID restricts the command to one channel when set.
	ChannelID string
	// DeferAck acknowledges the interaction before storefront I/O.
	DeferAck bool
	Cooldown time.Duration
}

// Handler is the inbound trigger: it turns a slash command interaction into a
// verification run and reports the outcome privately to the requester.
type Handler struct {
	config      Config
	rateLimiter *RateLimiter
	sanitizer   *bluemonday.Policy
}

func NewHandler(config Config) *Handler {
	if config.Cooldown <= 0 {
		config.Cooldown = defaultCooldown
	}
	return &Handler{
		config:      config,
		rateLimiter: NewRateLimiter(config.Cooldown),
		sanitizer:   bluemonday.StrictPolicy(),
	}
}

// Command builds the slash command definition, with platform choices taken
// from the registry so adding a storefront never touches this file.
func (h *Handler) Command() *discordgo.ApplicationCommand {
	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, name := range h.config.Registry.Platforms() {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  name,
			Value: name,
		})
	}

	return &discordgo.ApplicationCommand{
		Name:        CommandVerify,
		Description: "Verify a storefront purchase and receive your roles",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "email",
				Description: "The email used for the purchase",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "platform",
				Description: "The storefront where you made the purchase",
				Required:    true,
				Choices:     choices,
			},
		},
	}
}

// HandleInteraction executes the /verify logic.
func (h *Handler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.ApplicationCommandData().Name != CommandVerify {
		return
	}

	user := i.Member
	if user == nil || user.User == nil {
		log.Printf("verify: interaction missing member context")
		return
	}

	if h.config.ChannelID != "" && i.ChannelID != h.config.ChannelID {
		h.respond(s, i, fmt.Sprintf("Please use this command in <#%s>.", h.config.ChannelID))
		return
	}

	if !h.rateLimiter.CanUse(user.User.ID) {
		wait := h.rateLimiter.TimeUntilNext(user.User.ID)
		h.respond(s, i, fmt.Sprintf("Please wait %d seconds before trying again.", int(wait.Seconds())+1))
		return
	}

	email, platform := "", ""
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "email":
			email = strings.TrimSpace(opt.StringValue())
		case "platform":
			platform = opt.StringValue()
		}
	}

	email = h.sanitizer.Sanitize(email)
	if !looksLikeEmail(email) {
		h.respond(s, i, "That doesn't look like a valid email address. Please try again.")
		return
	}

	if h.config.DeferAck {
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Flags: discordgo.MessageFlagsEphemeral,
			},
		})
		if err != nil {
			log.Printf("verify: failed to acknowledge interaction: %v", err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	outcome := h.config.Orchestrator.Run(ctx, reconcile.Request{
		UserID:             user.User.ID,
		RequestingIdentity: user.User.Username,
		Email:              email,
		Platform:           platform,
	})

	msg := reconcile.Report(outcome)

	if h.config.DeferAck {
		if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &msg}); err != nil {
			log.Printf("verify: failed to deliver outcome for run %s: %v", outcome.RunID, err)
		}
		return
	}

	h.respond(s, i, msg)
}

// respond sends a single ephemeral reply. All outcome messages are private to
// the requester.
func (h *Handler) respond(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("verify: failed to respond to interaction: %v", err)
	}
}

func looksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && strings.Contains(s[at+1:], ".") && len(s) <= 254
}
