package mambabot

import (
	"context"
	"fmt"
	"github.com/lmittmann/tint"
	"time"
)

// handleEvent handles /event: the submission is posted to the server's
// queue channel for review, and the donor gets an ephemeral confirmation.
func (b *Bot) handleEvent(ctx context.Context, handler InteractionHandler) {
	i := handler.GetInteraction()
	logger := handler.Logger()

	options := discordInteractionOptions(i)
	submission := EventSubmission{
		Event:   optionString(options, eventOptionEvent),
		Message: optionString(options, eventOptionMessage),
		Link:    optionString(options, eventOptionLink),
		Donor:   getDiscordUser(i),
	}
	logger = logger.With("submission", submission)

	serverConfig, ok := b.store.Get(i.GuildID)
	if !ok {
		logger.InfoContext(ctx, "event submitted before setup")
		_ = handler.Respond(ctx, ephemeralResponse(msgEventNotConfigured))
		return
	}

	channel, err := b.discord.queueChannel(serverConfig.QueueChannel)
	if err != nil {
		logger.WarnContext(
			ctx,
			"queue channel not found",
			tint.Err(err),
			"queue_channel", serverConfig.QueueChannel,
		)
		_ = handler.Respond(ctx, ephemeralResponse(msgQueueChannelNotFound))
		return
	}

	if allowed, wait := b.submitLimiter.reserve(submission.Donor.ID); !allowed {
		logger.InfoContext(ctx, "event submission rate-limited", "wait", wait)
		_ = handler.Respond(
			ctx,
			ephemeralResponse(fmt.Sprintf(msgEventCooldown, wait.Round(time.Second))),
		)
		return
	}

	msg, err := b.discord.session.ChannelMessageSendComplex(
		channel.ID,
		submission.MessageSend(serverConfig.RoleID, b.config.Event.PendingColor),
	)
	if err != nil {
		logger.ErrorContext(ctx, "error queueing event", tint.Err(err))
		b.submitLimiter.release(submission.Donor.ID)
		_ = handler.Respond(
			ctx,
			ephemeralResponse(fmt.Sprintf(msgEventQueueFailed, err)),
		)
		return
	}

	logger.InfoContext(ctx, "event queued", "channel_id", channel.ID, "message_id", msg.ID)
	_ = handler.Respond(ctx, ephemeralResponse(msgEventQueued))
}
