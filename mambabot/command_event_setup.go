package mambabot

import (
	"context"
	"errors"
	"fmt"
	"github.com/lmittmann/tint"
)

var errEventSetupGuildMissing = errors.New(msgEventSetupGuildMissing)

// handleEventSetup handles /event_setup, saving the role to mention and
// the channel to queue submissions in for the interaction's server
func (b *Bot) handleEventSetup(ctx context.Context, handler InteractionHandler) {
	i := handler.GetInteraction()
	logger := handler.Logger()

	if i.GuildID == "" {
		logger.WarnContext(ctx, "event setup used outside a server")
		_ = handler.Respond(
			ctx,
			ephemeralResponse(fmt.Sprintf(msgEventSetupFailed, errEventSetupGuildMissing)),
		)
		return
	}

	options := discordInteractionOptions(i)
	cfg, err := b.store.Set(
		i.GuildID,
		optionString(options, eventSetupOptionRoleID),
		optionString(options, eventSetupOptionQueueChannel),
	)
	if err != nil {
		logger.ErrorContext(ctx, "error saving event setup", tint.Err(err))
		_ = handler.Respond(
			ctx,
			ephemeralResponse(fmt.Sprintf(msgEventSetupFailed, err)),
		)
		return
	}

	logger.InfoContext(ctx, "event setup saved", "config", cfg)
	_ = handler.Respond(ctx, ephemeralResponse(msgEventSetupSaved))
}
