package entitlement

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Granter issues idempotent entitlement grants against the external
// entitlement store. Granting a role the user already holds is a no-op
// success.
type Granter interface {
	Grant(ctx context.Context, userID, roleID string) error
	RoleName(roleID string) string
}

// DiscordGranter grants entitlements as guild roles.
type DiscordGranter struct {
	session *discordgo.Session
	guildID string
}

func NewDiscordGranter(session *discordgo.Session, guildID string) *DiscordGranter {
	return &DiscordGranter{session: session, guildID: guildID}
}

// Grant adds the role to the guild member. The Discord API treats adding a
// role the member already holds as success, which gives us idempotence.
func (g *DiscordGranter) Grant(ctx context.Context, userID, roleID string) error {
	if err := g.session.GuildMemberRoleAdd(g.guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("grant role %s: %w", roleID, err)
	}
	return nil
}

// RoleName resolves a display name from the state cache, falling back to the
// raw ID when the role is unknown.
func (g *DiscordGranter) RoleName(roleID string) string {
	role, err := g.session.State.Role(g.guildID, roleID)
	if err != nil || role == nil {
		return roleID
	}
	return role.Name
}
