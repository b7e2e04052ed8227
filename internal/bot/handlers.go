package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"guildkeeper/internal/analytics"
	"guildkeeper/internal/leveling"
	"guildkeeper/internal/modules/audit"
	"guildkeeper/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type commandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) commandOptions {
	out := make(commandOptions, len(options))
	for _, opt := range options {
		out[opt.Name] = opt
	}
	return out
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	if interaction.GuildID == "" {
		lang := b.cfg.DefaultLanguage
		b.respondEmbed(session, interaction, b.commandEmbed(data.Name, b.t(lang, "error_only_guild"), b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}

	settings := b.guildSettings(ctx, interaction.GuildID)
	lang := settings.Language
	if lang == "" {
		lang = b.cfg.DefaultLanguage
	}

	switch data.Name {
	case "rank":
		b.handleRankCommand(ctx, session, interaction, lang, optionMap(data.Options))
	case "leaderboard":
		b.handleLeaderboardCommand(ctx, session, interaction, lang, optionMap(data.Options))
	case "xp":
		if !b.canManage(interaction) {
			b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, "xp_title"), b.t(lang, "error_permission"), b.cfg.Notifications.EmbedColors.Error, nil), true)
			return
		}
		b.handleXPCommand(ctx, session, interaction, lang, data.Options)
	case "levels":
		if !b.canManage(interaction) {
			b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, "levels_title"), b.t(lang, "error_permission"), b.cfg.Notifications.EmbedColors.Error, nil), true)
			return
		}
		b.handleLevelsCommand(ctx, session, interaction, settings, lang, data.Options)
	case "report":
		if !b.canManage(interaction) {
			b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, "report_title"), b.t(lang, "error_permission"), b.cfg.Notifications.EmbedColors.Error, nil), true)
			return
		}
		b.handleReportCommand(ctx, session, interaction, lang, optionMap(data.Options))
	default:
		b.respondEmbed(session, interaction, b.commandEmbed(data.Name, b.t(lang, "error_unknown"), b.cfg.Notifications.EmbedColors.Error, nil), true)
	}
}

// canManage double-checks Manage Server, since guilds can override the
// command's default permissions.
func (b *Bot) canManage(interaction *discordgo.InteractionCreate) bool {
	if interaction.Member == nil {
		return false
	}
	perms := interaction.Member.Permissions
	return perms&discordgo.PermissionManageServer != 0 || perms&discordgo.PermissionAdministrator != 0
}

func (b *Bot) handleRankCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, lang string, options commandOptions) {
	userID := ""
	if opt, ok := options["user"]; ok {
		if user := opt.UserValue(session); user != nil {
			userID = user.ID
		}
	}
	if userID == "" && interaction.Member != nil && interaction.Member.User != nil {
		userID = interaction.Member.User.ID
	}

	lookup, err := b.levels.Rank(ctx, interaction.GuildID, userID)
	if err != nil {
		b.logger.Warn("rank lookup failed", zap.String("guild_id", interaction.GuildID), zap.String("user_id", userID), zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, "rank_title"), b.t(lang, "error_failed"), b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}
	if lookup.Status == leveling.New {
		fields := []*discordgo.MessageEmbedField{{Name: b.t(lang, "field_user"), Value: "<@" + userID + ">", Inline: true}}
		b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, "rank_title"), b.t(lang, "rank_unranked"), b.cfg.Notifications.EmbedColors.Action, fields), false)
		return
	}

	rec := lookup.Record
	curve := b.levels.Curve()
	required := curve.MinTotalXP(rec.Level+1) - curve.MinTotalXP(rec.Level)
	position := "-"
	if b.analytics != nil {
		if pos, total, err := b.analytics.Position(ctx, interaction.GuildID, userID); err == nil && pos > 0 {
			position = fmt.Sprintf("#%d / %d", pos, total)
		}
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "field_user"), Value: "<@" + userID + ">", Inline: true},
		{Name: b.t(lang, "field_level"), Value: fmt.Sprintf("%d", rec.Level), Inline: true},
		{Name: b.t(lang, "field_position"), Value: position, Inline: true},
		{Name: b.t(lang, "field_total_xp"), Value: fmt.Sprintf("%d", rec.TotalXP), Inline: true},
		{Name: b.t(lang, "field_messages"), Value: fmt.Sprintf("%d", rec.MessageCount), Inline: true},
		{Name: b.t(lang, "field_progress"), Value: fmt.Sprintf("`%s` %d / %d", progressBar(rec.CurrentLevelXP, required, 20), rec.CurrentLevelXP, required), Inline: false},
	}
	embed := b.commandEmbed(b.t(lang, "rank_title"), "", b.cfg.Notifications.EmbedColors.Action, fields)
	embed.Footer = b.embedFooter(lang)
	b.respondEmbed(session, interaction, embed, false)
}

func (b *Bot) handleLeaderboardCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, lang string, options commandOptions) {
	limit := 10
	if opt, ok := options["limit"]; ok {
		limit = int(opt.IntValue())
	}
	standings, err := b.analytics.Leaderboard(ctx, interaction.GuildID, limit)
	if err != nil {
		b.logger.Warn("leaderboard failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, "leaderboard_title"), b.t(lang, "error_failed"), b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}
	if len(standings) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, "leaderboard_title"), b.t(lang, "leaderboard_empty"), b.cfg.Notifications.EmbedColors.Action, nil), false)
		return
	}
	lines := make([]string, 0, len(standings))
	for _, standing := range standings {
		lines = append(lines, fmt.Sprintf("**%d.** <@%s> | %s %d | %d XP",
			standing.Position, standing.Record.UserID, b.t(lang, "field_level"), standing.Record.Level, standing.Record.TotalXP))
	}
	embed := b.commandEmbed(b.t(lang, "leaderboard_title"), strings.Join(lines, "\n"), b.cfg.Notifications.EmbedColors.Action, nil)
	embed.Footer = b.embedFooter(lang)
	b.respondEmbed(session, interaction, embed, false)
}

func (b *Bot) handleXPCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, lang string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	title := b.t(lang, "xp_title")
	if len(options) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed(title, b.t(lang, "error_no_subcommand"), b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}
	sub := options[0]
	args := optionMap(sub.Options)

	userID := ""
	if opt, ok := args["user"]; ok {
		if user := opt.UserValue(session); user != nil {
			userID = user.ID
		}
	}
	if userID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed(title, b.t(lang, "error_invalid"), b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}
	var value int64
	if opt, ok := args["value"]; ok {
		value = opt.IntValue()
	}

	var (
		rec   leveling.Record
		key   string
		err   error
		reset bool
	)
	switch sub.Name {
	case "set":
		rec, err = b.levels.SetTotalXP(ctx, interaction.GuildID, userID, value)
		key = "xp_set_done"
	case "level":
		rec, err = b.levels.SetLevel(ctx, interaction.GuildID, userID, int(value))
		key = "xp_level_done"
	case "add":
		var award leveling.Award
		award, err = b.levels.GrantXP(ctx, interaction.GuildID, userID, value)
		rec = award.Record
		key = "xp_add_done"
	case "reset":
		err = b.levels.ResetUser(ctx, interaction.GuildID, userID)
		key = "xp_reset_done"
		reset = true
	default:
		b.respondEmbed(session, interaction, b.commandEmbed(title, b.t(lang, "error_unknown"), b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}
	if err != nil {
		reason := b.t(lang, "error_failed")
		if errors.Is(err, leveling.ErrInvalidAmount) {
			reason = b.t(lang, "error_invalid")
		} else {
			b.logger.Warn("xp command failed", zap.String("sub", sub.Name), zap.String("guild_id", interaction.GuildID), zap.String("user_id", userID), zap.Error(err))
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, reason, b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}

	fields := []*discordgo.MessageEmbedField{{Name: b.t(lang, "field_user"), Value: "<@" + userID + ">", Inline: true}}
	if !reset {
		fields = append(fields,
			&discordgo.MessageEmbedField{Name: b.t(lang, "field_level"), Value: fmt.Sprintf("%d", rec.Level), Inline: true},
			&discordgo.MessageEmbedField{Name: b.t(lang, "field_total_xp"), Value: fmt.Sprintf("%d", rec.TotalXP), Inline: true},
		)
	}
	b.respondEmbed(session, interaction, b.commandEmbed(title, b.t(lang, key), b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) handleLevelsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, settings storage.GuildSettings, lang string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	title := b.t(lang, "levels_title")
	if len(options) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed(title, b.t(lang, "error_no_subcommand"), b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}
	sub := options[0]
	args := optionMap(sub.Options)

	var (
		key    string
		fields []*discordgo.MessageEmbedField
	)
	switch sub.Name {
	case "channel":
		settings.LevelUpChannel = ""
		key = "levels_channel_clear"
		value := b.t(lang, "value_not_set")
		if opt, ok := args["channel"]; ok {
			if channel := opt.ChannelValue(session); channel != nil {
				settings.LevelUpChannel = channel.ID
				key = "levels_channel_set"
				value = "<#" + channel.ID + ">"
			}
		}
		fields = []*discordgo.MessageEmbedField{{Name: b.t(lang, "field_channel"), Value: value, Inline: true}}
	case "language":
		opt, ok := args["value"]
		if !ok {
			b.respondEmbed(session, interaction, b.commandEmbed(title, b.t(lang, "error_invalid"), b.cfg.Notifications.EmbedColors.Error, nil), true)
			return
		}
		value := opt.StringValue()
		if value != "fr" && value != "en" && value != "es" {
			b.respondEmbed(session, interaction, b.commandEmbed(title, b.t(lang, "error_invalid"), b.cfg.Notifications.EmbedColors.Error, nil), true)
			return
		}
		settings.Language = value
		lang = value
		title = b.t(lang, "levels_title")
		key = "levels_language_set"
		fields = []*discordgo.MessageEmbedField{{Name: b.t(lang, "field_language"), Value: value, Inline: true}}
	case "announce":
		opt, ok := args["enabled"]
		if !ok {
			b.respondEmbed(session, interaction, b.commandEmbed(title, b.t(lang, "error_invalid"), b.cfg.Notifications.EmbedColors.Error, nil), true)
			return
		}
		settings.AnnounceLevelUps = opt.BoolValue()
		key = "levels_announce_set"
		state := b.t(lang, "value_off")
		if settings.AnnounceLevelUps {
			state = b.t(lang, "value_on")
		}
		fields = []*discordgo.MessageEmbedField{{Name: b.t(lang, "field_announce"), Value: state, Inline: true}}
	default:
		b.respondEmbed(session, interaction, b.commandEmbed(title, b.t(lang, "error_unknown"), b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}

	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.logger.Warn("levels settings update failed", zap.String("sub", sub.Name), zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed(title, b.t(lang, "error_failed"), b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed(title, b.t(lang, key), b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) handleReportCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, lang string, options commandOptions) {
	start := time.Now().Add(-24 * time.Hour)
	if opt, ok := options["period"]; ok && opt.StringValue() == "week" {
		start = time.Now().Add(-7 * 24 * time.Hour)
	}
	report, err := b.analytics.Report(ctx, interaction.GuildID, start)
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, "report_title"), b.t(lang, "error_failed"), b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, "report_title"), b.t(lang, "report_desc"), b.cfg.Notifications.EmbedColors.Action, b.reportFields(lang, report)), true)
}

func (b *Bot) reportFields(lang string, report analytics.Report) []*discordgo.MessageEmbedField {
	return []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "field_total"), Value: fmt.Sprintf("%d", report.Total), Inline: true},
		{Name: b.t(lang, "field_level_ups"), Value: fmt.Sprintf("%d", report.LevelUps), Inline: true},
		{Name: b.t(lang, "field_users"), Value: fmt.Sprintf("%d", report.Users), Inline: true},
		{Name: b.t(lang, "field_warn"), Value: fmt.Sprintf("%d", report.ByLevel[audit.LevelWarn]), Inline: true},
	}
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}
