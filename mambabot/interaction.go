package mambabot

import (
	"context"
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"log/slog"
	"runtime/debug"
)

// InteractionHandler defines the methods commands use to reply to a
// discord interaction.
type InteractionHandler interface {
	// Respond sends an initial response to a Discord interaction.
	Respond(ctx context.Context, i *discordgo.InteractionResponse) error

	// Followup sends a followup message, generally after the
	// interaction has been deferred.
	Followup(
		ctx context.Context,
		params *discordgo.WebhookParams,
	) (*discordgo.Message, error)

	// GetInteraction returns the original InteractionCreate event.
	GetInteraction() *discordgo.InteractionCreate

	// Logger returns the logger associated with this handler.
	Logger() *slog.Logger
}

// GatewayHandler implements [InteractionHandler] when receiving interactions
// via the discord websocket gateway.
type GatewayHandler struct {
	session     DiscordSessionHandler
	interaction *discordgo.InteractionCreate
	logger      *slog.Logger
}

func (w GatewayHandler) Respond(
	ctx context.Context,
	response *discordgo.InteractionResponse,
) error {
	err := w.session.InteractionRespond(w.interaction.Interaction, response)
	if err != nil {
		w.logger.ErrorContext(ctx, "error responding to interaction", tint.Err(err))
	} else {
		w.logger.InfoContext(ctx, "responded to interaction")
	}
	return err
}

func (w GatewayHandler) Followup(
	ctx context.Context,
	params *discordgo.WebhookParams,
) (*discordgo.Message, error) {
	msg, err := w.session.FollowupMessageCreate(w.interaction.Interaction, true, params)
	if err != nil {
		w.logger.ErrorContext(ctx, "error sending followup", tint.Err(err))
	} else {
		w.logger.InfoContext(ctx, "sent followup")
	}
	return msg, err
}

func (w GatewayHandler) GetInteraction() *discordgo.InteractionCreate {
	return w.interaction
}

func (w GatewayHandler) Logger() *slog.Logger {
	return w.logger
}

// ephemeralResponse returns a message response only visible to the
// user who triggered the interaction
func ephemeralResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

// deferredEphemeralResponse acknowledges an interaction with a 'thinking'
// state, to be completed by a followup
func deferredEphemeralResponse() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	}
}

// handleInteraction routes an incoming interaction to the slash command
// or button handler it's meant for.
//
// Ping interactions get a Pong. Interactions from bot users, and unknown
// commands or buttons, are logged and ignored.
func (b *Bot) handleInteraction(
	ctx context.Context,
	handler InteractionHandler,
) {
	logger := handler.Logger()
	i := handler.GetInteraction()

	if i.Type == discordgo.InteractionPing {
		_ = handler.Respond(
			ctx, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponsePong,
			},
		)
		return
	}

	discordUser := getDiscordUser(i)
	if discordUser == nil {
		logger.ErrorContext(
			ctx,
			"no user found in interaction",
			"interaction", structToSlogValue(i),
		)
		return
	}

	logger = logger.With(slog.Group("user", userLogAttrs(*discordUser)...))
	ctx = WithLogger(ctx, logger)
	logger.InfoContext(ctx, "received new interaction")

	if discordUser.Bot {
		logger.WarnContext(ctx, "user is bot, ignoring")
		return
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		commandName := i.ApplicationCommandData().Name
		switch commandName {
		case DiscordSlashCommandEventSetup:
			b.handleEventSetup(ctx, handler)
		case DiscordSlashCommandEvent:
			b.handleEvent(ctx, handler)
		case DiscordSlashCommandBotRefresh:
			b.handleBotRefresh(ctx, handler)
		default:
			logger.WarnContext(ctx, "unknown command", "command", commandName)
		}
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		customID, err := decodeCustomID(data.CustomID)
		if err != nil {
			logger.WarnContext(
				ctx,
				"unhandled component interaction",
				tint.Err(err),
				"custom_id", data.CustomID,
			)
			return
		}
		b.handleReview(ctx, handler, customID)
	default:
		logger.WarnContext(ctx, "unhandled interaction type")
	}
}

// handleRecover logs a panic recovered while handling an interaction,
// along with its stack trace
func (*Bot) handleRecover(ctx context.Context, rc any) {
	logger, ok := ContextLogger(ctx)
	if logger == nil || !ok {
		logger = slog.Default()
	}
	stackTrace := string(debug.Stack())
	if nerr, ok := rc.(error); ok {
		logger.ErrorContext(
			ctx,
			"recovered from panic",
			tint.Err(nerr),
			"stack_trace", stackTrace,
		)
		return
	}
	logger.ErrorContext(
		ctx,
		"recovered from panic",
		tint.Err(fmt.Errorf("%v", rc)),
		"stack_trace", stackTrace,
	)
}
