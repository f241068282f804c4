package mambabot

import (
	"github.com/bwmarrin/discordgo"
)

// Slash command option names
const (
	eventSetupOptionRoleID       = "role_id"
	eventSetupOptionQueueChannel = "queue_channel"

	eventOptionEvent   = "event"
	eventOptionMessage = "message"
	eventOptionLink    = "link"
)

// Replies sent to users
const (
	msgEventSetupSaved        = "Event configuration has been saved! ✅"
	msgEventSetupFailed       = "Failed to save configuration: %s"
	msgEventNotConfigured     = "Please ask an administrator to set up the event system first using /event_setup"
	msgQueueChannelNotFound   = "Queue channel not found. Contact an admin."
	msgEventQueued            = "Event has been queued! ✅"
	msgEventQueueFailed       = "Failed to queue event: %s"
	msgEventCooldown          = "You're submitting events too quickly. Try again in %s."
	msgNoPermission           = "You don't have permission to use this command."
	msgCommandSyncSucceeded   = "✅ Successfully synced %d commands!"
	msgCommandSyncFailed      = "❌ Failed to sync commands: %s"
	msgEventSetupGuildMissing = "this command can only be used in a server"
)

// adminPermission restricts /event_setup to administrators by default.
// Server owners can change this in their integration settings.
var adminPermission int64 = discordgo.PermissionAdministrator

// commandDefinitions returns every slash command the bot registers
func commandDefinitions() []*discordgo.ApplicationCommand {
	guildOnly := []discordgo.InteractionContextType{
		discordgo.InteractionContextGuild,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:                     DiscordSlashCommandEventSetup,
			Description:              "Setup event configuration",
			Type:                     discordgo.ChatApplicationCommand,
			DefaultMemberPermissions: &adminPermission,
			Contexts:                 &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        eventSetupOptionRoleID,
					Description: "Role ID to be mentioned for events",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        eventSetupOptionQueueChannel,
					Description: "Channel where events should be queued",
					Required:    true,
				},
			},
		},
		{
			Name:        DiscordSlashCommandEvent,
			Description: "Submit an event donation",
			Type:        discordgo.ChatApplicationCommand,
			Contexts:    &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        eventOptionEvent,
					Description: "Type of event",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        eventOptionMessage,
					Description: "Extra event info",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        eventOptionLink,
					Description: "Message link",
					Required:    true,
				},
			},
		},
		{
			Name:        DiscordSlashCommandBotRefresh,
			Description: "Refresh and sync all bot commands",
			Type:        discordgo.ChatApplicationCommand,
		},
	}
}
