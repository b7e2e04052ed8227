package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"guildkeeper/internal/analytics"
	"guildkeeper/internal/config"
	"guildkeeper/internal/leveling"
	"guildkeeper/internal/modules/audit"
	"guildkeeper/internal/storage"
	"guildkeeper/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg        config.Config
	logger     *zap.Logger
	store      *storage.Store
	levels     *leveling.Service
	audit      *audit.Logger
	analytics  *analytics.Service
	session    *discordgo.Session
	auditAgg   map[string]*auditAggregate
	auditAggMu sync.Mutex
}

type auditAggregate struct {
	channelID string
	messageID string
	count     int
	lastAt    time.Time
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, levels *leveling.Service, auditLogger *audit.Logger, analyticsEngine *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		levels:    levels,
		audit:     auditLogger,
		analytics: analyticsEngine,
		session:   session,
		auditAgg:  make(map[string]*auditAggregate),
	}

	levels.WithNotifier(newDiscordNotifier(session))
	levels.WithAnnounceResolver(b.announceChannel)
	if b.audit != nil {
		b.audit.SetNotifier(func(ctx context.Context, entry audit.Entry) {
			if !b.cfg.Notifications.AuditToChannel {
				return
			}
			b.notifyAudit(ctx, entry)
		})
	}

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if !b.cfg.Leveling.Enabled {
		return
	}
	message, ok := toLevelingMessage(msg)
	if !ok {
		return
	}
	award := b.levels.HandleMessage(context.Background(), message)
	if award.Outcome == leveling.OutcomeAwarded {
		b.logger.Debug("xp awarded",
			zap.String("guild_id", message.GuildID),
			zap.String("user_id", message.UserID),
			zap.Int64("delta", award.Delta),
			zap.Int("level", award.Record.Level),
			zap.String("status", award.Status.String()),
		)
	}
}

// toLevelingMessage keeps only what the award pipeline scores on.
// Webhook, system and DM messages are dropped.
func toLevelingMessage(msg *discordgo.MessageCreate) (leveling.Message, bool) {
	if msg == nil || msg.Message == nil || msg.Author == nil {
		return leveling.Message{}, false
	}
	if msg.GuildID == "" || msg.WebhookID != "" {
		return leveling.Message{}, false
	}
	return leveling.Message{
		GuildID:     msg.GuildID,
		ChannelID:   msg.ChannelID,
		MessageID:   msg.ID,
		UserID:      msg.Author.ID,
		IsBot:       msg.Author.Bot || msg.Author.System,
		Length:      utf8.RuneCountInString(msg.Content),
		Attachments: len(msg.Attachments),
		HasLink:     utils.HasLink(msg.Content),
	}, true
}

// announceChannel resolves where a guild wants level-ups posted.
func (b *Bot) announceChannel(ctx context.Context, guildID string) (string, bool) {
	settings := b.guildSettings(ctx, guildID)
	return settings.LevelUpChannel, settings.AnnounceLevelUps
}

func (b *Bot) notifyAudit(ctx context.Context, entry audit.Entry) {
	if entry.Event == audit.EventLevelUp {
		return
	}
	settings := b.guildSettings(ctx, entry.GuildID)
	channelID := settings.LogChannel
	if channelID == "" {
		return
	}
	lang := settings.Language

	key := entry.GuildID + "|" + entry.Level + "|" + entry.Event + "|" + entry.Details + "|" + entry.UserID
	window := 10 * time.Minute

	b.auditAggMu.Lock()
	agg := b.auditAgg[key]
	if agg != nil && agg.channelID == channelID && time.Since(agg.lastAt) <= window {
		agg.count++
		agg.lastAt = time.Now()
		count := agg.count
		messageID := agg.messageID
		b.auditAggMu.Unlock()
		embed := b.buildAuditEmbed(lang, entry, count)
		if _, err := b.session.ChannelMessageEditEmbed(channelID, messageID, embed); err == nil {
			return
		}
		b.auditAggMu.Lock()
		delete(b.auditAgg, key)
	}
	b.auditAggMu.Unlock()

	embed := b.buildAuditEmbed(lang, entry, 1)
	msg, err := b.session.ChannelMessageSendEmbed(channelID, embed)
	if err != nil || msg == nil {
		b.logger.Warn("audit notify failed", zap.String("guild_id", entry.GuildID), zap.Error(err))
		return
	}
	b.auditAggMu.Lock()
	b.auditAgg[key] = &auditAggregate{channelID: channelID, messageID: msg.ID, count: 1, lastAt: time.Now()}
	b.auditAggMu.Unlock()
}

func (b *Bot) buildAuditEmbed(lang string, entry audit.Entry, count int) *discordgo.MessageEmbed {
	color := b.cfg.Notifications.EmbedColors.Action
	if entry.Level == audit.LevelWarn {
		color = b.cfg.Notifications.EmbedColors.Warning
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "field_event"), Value: entry.Event, Inline: true},
	}
	if entry.UserID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(lang, "field_user"), Value: "<@" + entry.UserID + ">", Inline: true})
	}
	if entry.Details != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(lang, "field_details"), Value: entry.Details, Inline: false})
	}
	title := b.t(lang, "audit_title")
	if count > 1 {
		title = fmt.Sprintf("%s (x%d)", title, count)
	}
	embed := b.commandEmbed(title, "", color, fields)
	embed.Footer = b.embedFooter(lang)
	return embed
}

func (b *Bot) embedFooter(lang string) *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{Text: b.t(lang, "footer_brand")}
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := storage.GuildSettings{
		GuildID:          guildID,
		LevelUpChannel:   b.cfg.Leveling.AnnounceChannelID,
		LogChannel:       b.cfg.DefaultLogChannel,
		Language:         b.cfg.DefaultLanguage,
		AnnounceLevelUps: true,
	}

	settings, err := b.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.Error(err))
		return defaults
	}
	return settings
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func progressBar(current, required int64, width int) string {
	if required <= 0 || width <= 0 {
		return ""
	}
	filled := int(float64(current) / float64(required) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
}
