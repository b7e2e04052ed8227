package bot

import (
	"context"
	"errors"
	"testing"

	"guildkeeper/internal/analytics"
	"guildkeeper/internal/leveling"
	"guildkeeper/internal/modules/audit"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLevelingMessage(t *testing.T) {
	msg := &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:          "m1",
		ChannelID:   "c1",
		GuildID:     "g1",
		Content:     "héllo https://example.com",
		Author:      &discordgo.User{ID: "u1"},
		Attachments: []*discordgo.MessageAttachment{{ID: "a1"}},
	}}

	got, ok := toLevelingMessage(msg)
	require.True(t, ok)
	assert.Equal(t, leveling.Message{
		GuildID:     "g1",
		ChannelID:   "c1",
		MessageID:   "m1",
		UserID:      "u1",
		Length:      25,
		Attachments: 1,
		HasLink:     true,
	}, got)
}

func TestToLevelingMessageDropsDMsAndWebhooks(t *testing.T) {
	dm := &discordgo.MessageCreate{Message: &discordgo.Message{ID: "m1", Author: &discordgo.User{ID: "u1"}}}
	_, ok := toLevelingMessage(dm)
	assert.False(t, ok)

	hook := &discordgo.MessageCreate{Message: &discordgo.Message{ID: "m2", GuildID: "g1", WebhookID: "w1", Author: &discordgo.User{ID: "u1"}}}
	_, ok = toLevelingMessage(hook)
	assert.False(t, ok)

	bot := &discordgo.MessageCreate{Message: &discordgo.Message{ID: "m3", GuildID: "g1", Author: &discordgo.User{ID: "u2", Bot: true}}}
	got, ok := toLevelingMessage(bot)
	require.True(t, ok)
	assert.True(t, got.IsBot)
}

func TestDiscordNotifier(t *testing.T) {
	var sent []*discordgo.MessageSend
	var channels []string
	n := &discordNotifier{
		send: func(channelID string, data *discordgo.MessageSend) error {
			channels = append(channels, channelID)
			sent = append(sent, data)
			return nil
		},
		addRole: func(guildID, userID, roleID string) error {
			return errors.New("missing access")
		},
	}
	ctx := context.Background()

	require.NoError(t, n.Reply(ctx, leveling.Message{GuildID: "g1", ChannelID: "c1", MessageID: "m1"}, "gg"))
	require.NoError(t, n.SendToChannel(ctx, "levels", "gg"))
	require.Error(t, n.GrantRole(ctx, "g1", "u1", "r1"))

	require.Len(t, sent, 2)
	assert.Equal(t, []string{"c1", "levels"}, channels)
	require.NotNil(t, sent[0].Reference)
	assert.Equal(t, "m1", sent[0].Reference.MessageID)
	assert.Nil(t, sent[1].Reference)
	assert.Equal(t, []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers}, sent[1].AllowedMentions.Parse)
}

func TestTranslationFallback(t *testing.T) {
	b := &Bot{}
	assert.Equal(t, "Classement", b.t("fr", "leaderboard_title"))
	assert.Equal(t, "Leaderboard", b.t("de", "leaderboard_title"))
	assert.Equal(t, "missing_key", b.t("fr", "missing_key"))

	for lang, table := range messages {
		for key := range messages["en"] {
			_, ok := table[key]
			assert.True(t, ok, "%s is missing %s", lang, key)
		}
	}
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "#####-----", progressBar(50, 100, 10))
	assert.Equal(t, "##########", progressBar(500, 100, 10))
	assert.Equal(t, "", progressBar(5, 0, 10))
}

func TestCommandDefinitions(t *testing.T) {
	names := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range commandDefinitions() {
		names[cmd.Name] = cmd
	}
	for _, name := range []string{"rank", "leaderboard", "xp", "levels", "report"} {
		require.Contains(t, names, name)
	}
	require.NotNil(t, names["xp"].DefaultMemberPermissions)
	assert.Equal(t, int64(discordgo.PermissionManageServer), *names["xp"].DefaultMemberPermissions)
	assert.Nil(t, names["rank"].DefaultMemberPermissions)
	assert.Len(t, names["xp"].Options, 4)
}

func TestReportFields(t *testing.T) {
	b := &Bot{}
	report := analytics.Report{Total: 12, LevelUps: 4, Users: 3, ByLevel: map[string]int{audit.LevelWarn: 2}}

	fields := b.reportFields("en", report)
	require.Len(t, fields, 4)
	assert.Equal(t, "Entries", fields[0].Name)
	assert.Equal(t, "12", fields[0].Value)
	assert.Equal(t, "4", fields[1].Value)
	assert.Equal(t, "3", fields[2].Value)
	assert.Equal(t, "Warnings", fields[3].Name)
	assert.Equal(t, "2", fields[3].Value)
}
