package bot

import "github.com/bwmarrin/discordgo"

var manageServer int64 = discordgo.PermissionManageServer

func userOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: "Target member",
		DescriptionLocalizations: map[discordgo.Locale]string{
			discordgo.French:    "Membre cible",
			discordgo.EnglishUS: "Target member",
			discordgo.SpanishES: "Miembro objetivo",
		},
		Required: required,
	}
}

func valueOption(description string, minValue float64) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "value",
		Description: description,
		Required:    true,
		MinValue:    &minValue,
	}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	minLimit, maxLimit := 1.0, 25.0
	return []*discordgo.ApplicationCommand{
		{
			Name:        "rank",
			Description: "Show level and XP",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Afficher le niveau et l'XP",
				discordgo.EnglishUS: "Show level and XP",
				discordgo.SpanishES: "Mostrar nivel y XP",
			},
			Options: []*discordgo.ApplicationCommandOption{userOption(false)},
		},
		{
			Name:        "leaderboard",
			Description: "Top members by XP",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Meilleurs membres par XP",
				discordgo.EnglishUS: "Top members by XP",
				discordgo.SpanishES: "Mejores miembros por XP",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "limit",
					Description: "How many members to show",
					MinValue:    &minLimit,
					MaxValue:    maxLimit,
				},
			},
		},
		{
			Name:                     "xp",
			Description:              "Adjust member XP",
			DefaultMemberPermissions: &manageServer,
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Ajuster l'XP d'un membre",
				discordgo.EnglishUS: "Adjust member XP",
				discordgo.SpanishES: "Ajustar XP de un miembro",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Set total XP",
					Options:     []*discordgo.ApplicationCommandOption{userOption(true), valueOption("Total XP", 0)},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "level",
					Description: "Set level",
					Options:     []*discordgo.ApplicationCommandOption{userOption(true), valueOption("Level", 1)},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Grant XP",
					Options:     []*discordgo.ApplicationCommandOption{userOption(true), valueOption("XP to grant", 1)},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reset",
					Description: "Reset progress",
					Options:     []*discordgo.ApplicationCommandOption{userOption(true)},
				},
			},
		},
		{
			Name:                     "levels",
			Description:              "Level settings for this server",
			DefaultMemberPermissions: &manageServer,
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Parametres des niveaux du serveur",
				discordgo.EnglishUS: "Level settings for this server",
				discordgo.SpanishES: "Ajustes de niveles del servidor",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "channel",
					Description: "Announcement channel, empty to reply in place",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "channel",
							Description:  "Channel",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "language",
					Description: "Bot language",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "value",
							Description: "fr, en or es",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "fr", Value: "fr"},
								{Name: "en", Value: "en"},
								{Name: "es", Value: "es"},
							},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "announce",
					Description: "Toggle level-up announcements",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "enabled",
							Description: "Announce level-ups",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:                     "report",
			Description:              "Level activity report",
			DefaultMemberPermissions: &manageServer,
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Rapport d'activite des niveaux",
				discordgo.EnglishUS: "Level activity report",
				discordgo.SpanishES: "Informe de actividad de niveles",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "period",
					Description: "day or week",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "day", Value: "day"},
						{Name: "week", Value: "week"},
					},
				},
			},
		},
	}
}

func (b *Bot) registerCommands() error {
	commands := commandDefinitions()

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}
	return nil
}
