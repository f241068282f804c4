package mambabot

import (
	"context"
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// handleBotRefresh handles /bot_refresh, re-registering every slash command.
// Only the privileged user may use it.
func (b *Bot) handleBotRefresh(ctx context.Context, handler InteractionHandler) {
	i := handler.GetInteraction()
	logger := handler.Logger()

	user := getDiscordUser(i)
	if user == nil || user.ID != b.config.Discord.PrivilegedUserID {
		logger.WarnContext(ctx, "unprivileged user attempted command refresh")
		_ = handler.Respond(ctx, ephemeralResponse(msgNoPermission))
		return
	}

	if err := handler.Respond(ctx, deferredEphemeralResponse()); err != nil {
		logger.ErrorContext(ctx, "error acknowledging interaction", tint.Err(err))
		return
	}

	var content string
	created, err := b.RegisterSlashCommands()
	if err != nil {
		logger.ErrorContext(ctx, "error syncing commands", tint.Err(err))
		content = fmt.Sprintf(msgCommandSyncFailed, err)
	} else {
		logger.InfoContext(ctx, "commands synced", "count", len(created))
		content = fmt.Sprintf(msgCommandSyncSucceeded, len(created))
	}

	_, _ = handler.Followup(
		ctx, &discordgo.WebhookParams{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	)
}
