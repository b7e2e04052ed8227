package bot

import (
	"context"

	"guildkeeper/internal/leveling"

	"github.com/bwmarrin/discordgo"
)

// discordNotifier carries level-up side effects to Discord. The send and
// addRole hooks default to the live session.
type discordNotifier struct {
	send    func(channelID string, data *discordgo.MessageSend) error
	addRole func(guildID, userID, roleID string) error
}

func newDiscordNotifier(session *discordgo.Session) *discordNotifier {
	return &discordNotifier{
		send: func(channelID string, data *discordgo.MessageSend) error {
			_, err := session.ChannelMessageSendComplex(channelID, data)
			return err
		},
		addRole: func(guildID, userID, roleID string) error {
			return session.GuildMemberRoleAdd(guildID, userID, roleID)
		},
	}
}

func (n *discordNotifier) Reply(_ context.Context, msg leveling.Message, content string) error {
	return n.send(msg.ChannelID, &discordgo.MessageSend{
		Content: content,
		Reference: &discordgo.MessageReference{
			MessageID: msg.MessageID,
			ChannelID: msg.ChannelID,
			GuildID:   msg.GuildID,
		},
		AllowedMentions: userMentions(),
	})
}

func (n *discordNotifier) SendToChannel(_ context.Context, channelID, content string) error {
	return n.send(channelID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: userMentions(),
	})
}

func (n *discordNotifier) GrantRole(_ context.Context, guildID, userID, roleID string) error {
	return n.addRole(guildID, userID, roleID)
}

// Level-up templates may echo user text; only user pings are allowed.
func userMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
	}
}
