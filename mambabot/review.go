package mambabot

import (
	"context"
	"errors"
	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"strings"
)

var errReviewMessageMissing = errors.New("interaction has no message")

// handleReview handles an Accept/Deny button press on a queued
// submission. The reviewer gets an ephemeral confirmation, then the
// submission's embed is re-titled and re-colored, and its buttons removed.
//
// Failures after the confirmation are logged and otherwise ignored.
// Concurrent presses aren't coordinated, so the last edit wins.
func (b *Bot) handleReview(
	ctx context.Context,
	handler InteractionHandler,
	customID CustomID,
) {
	i := handler.GetInteraction()
	logger := handler.Logger().With("custom_id", customID)

	if err := handler.Respond(ctx, ephemeralResponse(reviewConfirmation(customID))); err != nil {
		logger.WarnContext(ctx, "error confirming review", tint.Err(err))
		return
	}

	if err := b.markReviewed(i, customID.Action); err != nil {
		logger.WarnContext(ctx, "error updating reviewed submission", tint.Err(err))
		return
	}
	logger.InfoContext(ctx, "submission reviewed", "status", customID.Action.Status())
}

// markReviewed fetches the message the buttons were attached to, and
// replaces its first embed with a copy showing the review outcome
func (b *Bot) markReviewed(i *discordgo.InteractionCreate, action ReviewAction) error {
	if i.Message == nil {
		return errReviewMessageMissing
	}

	msg, err := b.discord.session.ChannelMessage(i.ChannelID, i.Message.ID)
	if err != nil {
		return err
	}
	if len(msg.Embeds) == 0 || msg.Embeds[0] == nil {
		return errors.New("message has no embeds")
	}

	embed := *msg.Embeds[0]
	embed.Title = strings.ReplaceAll(
		embed.Title,
		embedStatusToken,
		capitalize(action.Status()),
	)
	embed.Color = int(b.reviewColor(action))

	edit := discordgo.NewMessageEdit(i.ChannelID, msg.ID)
	edit.Embeds = &[]*discordgo.MessageEmbed{&embed}
	edit.Components = &[]discordgo.MessageComponent{}

	_, err = b.discord.session.ChannelMessageEditComplex(edit)
	return err
}

func (b *Bot) reviewColor(action ReviewAction) EmbedColor {
	if action == ReviewAccept {
		return b.config.Event.AcceptedColor
	}
	return b.config.Event.DeniedColor
}
