package bot

var messages = map[string]map[string]string{
	"en": {
		"footer_brand":         "Guildkeeper levels",
		"rank_title":           "Rank",
		"rank_unranked":        "No XP yet. Start chatting!",
		"leaderboard_title":    "Leaderboard",
		"leaderboard_empty":    "Nobody has earned XP yet.",
		"xp_title":             "XP admin",
		"xp_set_done":          "Total XP updated.",
		"xp_level_done":        "Level updated.",
		"xp_add_done":          "XP granted.",
		"xp_reset_done":        "Progress reset.",
		"levels_title":         "Level settings",
		"levels_channel_set":   "Level-up announcements will be posted in this channel.",
		"levels_channel_clear": "Level-up announcements will reply to the message.",
		"levels_language_set":  "Language updated.",
		"levels_announce_set":  "Announcement setting updated.",
		"report_title":         "Level report",
		"report_desc":          "Activity from the audit log.",
		"audit_title":          "Level log",
		"field_user":           "User",
		"field_level":          "Level",
		"field_total_xp":       "Total XP",
		"field_progress":       "Progress",
		"field_position":       "Position",
		"field_messages":       "Messages",
		"field_channel":        "Channel",
		"field_language":       "Language",
		"field_announce":       "Announce",
		"field_total":          "Entries",
		"field_level_ups":      "Level-ups",
		"field_users":          "Users",
		"field_warn":           "Warnings",
		"field_event":          "Event",
		"field_details":        "Details",
		"error_only_guild":     "This command only works in a server.",
		"error_no_subcommand":  "Missing subcommand.",
		"error_permission":     "You need the Manage Server permission.",
		"error_invalid":        "Invalid value.",
		"error_failed":         "Something went wrong, try again later.",
		"error_unknown":        "Unknown command.",
		"value_not_set":        "not set",
		"value_on":             "on",
		"value_off":            "off",
	},
	"fr": {
		"footer_brand":         "Guildkeeper niveaux",
		"rank_title":           "Rang",
		"rank_unranked":        "Pas encore d'XP. Commence a discuter !",
		"leaderboard_title":    "Classement",
		"leaderboard_empty":    "Personne n'a encore gagne d'XP.",
		"xp_title":             "Administration XP",
		"xp_set_done":          "XP total mis a jour.",
		"xp_level_done":        "Niveau mis a jour.",
		"xp_add_done":          "XP accorde.",
		"xp_reset_done":        "Progression reinitialisee.",
		"levels_title":         "Parametres des niveaux",
		"levels_channel_set":   "Les annonces de niveau seront publiees dans ce salon.",
		"levels_channel_clear": "Les annonces de niveau repondront au message.",
		"levels_language_set":  "Langue mise a jour.",
		"levels_announce_set":  "Parametre d'annonce mis a jour.",
		"report_title":         "Rapport des niveaux",
		"report_desc":          "Activite du journal d'audit.",
		"audit_title":          "Journal des niveaux",
		"field_user":           "Utilisateur",
		"field_level":          "Niveau",
		"field_total_xp":       "XP total",
		"field_progress":       "Progression",
		"field_position":       "Position",
		"field_messages":       "Messages",
		"field_channel":        "Salon",
		"field_language":       "Langue",
		"field_announce":       "Annonce",
		"field_total":          "Entrees",
		"field_level_ups":      "Montees de niveau",
		"field_users":          "Utilisateurs",
		"field_warn":           "Avertissements",
		"field_event":          "Evenement",
		"field_details":        "Details",
		"error_only_guild":     "Cette commande ne fonctionne que sur un serveur.",
		"error_no_subcommand":  "Sous-commande manquante.",
		"error_permission":     "Il faut la permission Gerer le serveur.",
		"error_invalid":        "Valeur invalide.",
		"error_failed":         "Une erreur est survenue, reessaie plus tard.",
		"error_unknown":        "Commande inconnue.",
		"value_not_set":        "non defini",
		"value_on":             "active",
		"value_off":            "desactive",
	},
	"es": {
		"footer_brand":         "Guildkeeper niveles",
		"rank_title":           "Rango",
		"rank_unranked":        "Aun sin XP. Empieza a chatear!",
		"leaderboard_title":    "Clasificacion",
		"leaderboard_empty":    "Nadie ha ganado XP todavia.",
		"xp_title":             "Administracion XP",
		"xp_set_done":          "XP total actualizado.",
		"xp_level_done":        "Nivel actualizado.",
		"xp_add_done":          "XP otorgado.",
		"xp_reset_done":        "Progreso reiniciado.",
		"levels_title":         "Ajustes de niveles",
		"levels_channel_set":   "Los anuncios de nivel se publicaran en este canal.",
		"levels_channel_clear": "Los anuncios de nivel responderan al mensaje.",
		"levels_language_set":  "Idioma actualizado.",
		"levels_announce_set":  "Ajuste de anuncios actualizado.",
		"report_title":         "Informe de niveles",
		"report_desc":          "Actividad del registro de auditoria.",
		"audit_title":          "Registro de niveles",
		"field_user":           "Usuario",
		"field_level":          "Nivel",
		"field_total_xp":       "XP total",
		"field_progress":       "Progreso",
		"field_position":       "Posicion",
		"field_messages":       "Mensajes",
		"field_channel":        "Canal",
		"field_language":       "Idioma",
		"field_announce":       "Anuncio",
		"field_total":          "Entradas",
		"field_level_ups":      "Subidas de nivel",
		"field_users":          "Usuarios",
		"field_warn":           "Avisos",
		"field_event":          "Evento",
		"field_details":        "Detalles",
		"error_only_guild":     "Este comando solo funciona en un servidor.",
		"error_no_subcommand":  "Falta el subcomando.",
		"error_permission":     "Necesitas el permiso Gestionar servidor.",
		"error_invalid":        "Valor invalido.",
		"error_failed":         "Algo salio mal, intentalo mas tarde.",
		"error_unknown":        "Comando desconocido.",
		"value_not_set":        "sin definir",
		"value_on":             "activado",
		"value_off":            "desactivado",
	},
}

// t looks a key up in lang, then English, then returns the key itself.
func (b *Bot) t(lang, key string) string {
	if table, ok := messages[lang]; ok {
		if value, ok := table[key]; ok {
			return value
		}
	}
	if value, ok := messages["en"][key]; ok {
		return value
	}
	return key
}
