package mambabot

import (
	"context"
	"errors"
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"log/slog"
	"sync"
	"sync/atomic"
)

var errUnknownApplicationID = errors.New("application ID not known yet (set discord.application_id or wait for the gateway to be ready)")

// Discord represents the Discord integration for the bot.
//
// It owns the session, tracks connection state, and registers the bot's
// slash commands once the gateway reports it's ready.
type Discord struct {
	session DiscordSessionHandler
	config  *DiscordConfig
	logger  *slog.Logger

	metricConnects    atomic.Int64
	metricDisconnects atomic.Int64
	connected         atomic.Bool

	// readyOnce guards the startup sequence, which only runs on the
	// first Ready event of the process
	readyOnce sync.Once

	// appID is the application ID reported by the gateway, used when
	// [DiscordConfig.ApplicationID] isn't set
	appID   string
	appIDMu sync.RWMutex

	discordgoRemoveHandlerFuncs []func()
	bot                         *Bot
}

// newDiscord returns a Discord without a session. The session is created
// by the bot on Run.
func newDiscord(config *DiscordConfig) *Discord {
	return &Discord{
		config:                      config,
		discordgoRemoveHandlerFuncs: []func(){},
	}
}

// newSession creates the discordgo session for the configured bot token.
// Events are dispatched synchronously; the interaction handler starts its
// own goroutine per interaction.
func (d *Discord) newSession() (DiscordSessionHandler, error) {
	session := DiscordSession{logger: d.logger.With(loggerNameKey, "discord_session_handler")}
	disc, err := discordgo.New("Bot " + d.config.Token)
	if err != nil {
		return session, fmt.Errorf("error creating discord session: %w", err)
	}

	// handlers spawn their own goroutines
	disc.SyncEvents = true

	// queue channels are resolved from the state cache first
	disc.StateEnabled = true
	session.session = disc

	if err = session.SetLogLevel(d.config.DiscordGoLogLevel.Level()); err != nil {
		return session, err
	}

	return session, nil
}

// applicationID returns the configured application ID, falling back to
// the one reported in the Ready event
func (d *Discord) applicationID() string {
	if d.config.ApplicationID != "" {
		return d.config.ApplicationID
	}
	d.appIDMu.RLock()
	defer d.appIDMu.RUnlock()
	return d.appID
}

func (d *Discord) setApplicationID(id string) {
	d.appIDMu.Lock()
	defer d.appIDMu.Unlock()
	d.appID = id
}

func (d *Discord) handlerReady(ctx context.Context) func(
	s *discordgo.Session,
	r *discordgo.Ready,
) {
	return func(_ *discordgo.Session, r *discordgo.Ready) {
		d.onReady(ctx, r)
	}
}

// onReady logs the bot's identity. On the first Ready of the process, it
// also logs the invite URL and syncs the bot's slash commands.
func (d *Discord) onReady(ctx context.Context, r *discordgo.Ready) {
	if r == nil || r.User == nil {
		d.logger.WarnContext(ctx, "ready event missing user")
		return
	}

	d.logger.InfoContext(
		ctx,
		"Ready",
		"session_id", r.SessionID,
		slog.Group("user", userLogAttrs(*r.User)...),
	)

	d.readyOnce.Do(
		func() {
			appID := r.User.ID
			if r.Application != nil && r.Application.ID != "" {
				appID = r.Application.ID
			}
			d.setApplicationID(appID)

			d.logger.InfoContext(
				ctx,
				fmt.Sprintf("Logged in as %s", r.User.String()),
				"invite_url", inviteURL(d.applicationID()),
			)

			d.logger.InfoContext(ctx, "syncing commands")
			created, err := d.registerCommands()
			if err != nil {
				d.logger.ErrorContext(ctx, "failed to sync commands", tint.Err(err))
				return
			}
			d.logger.InfoContext(ctx, "commands synced", "count", len(created))
		},
	)
}

// Connected reports whether the gateway connection is currently up
func (d *Discord) Connected() bool {
	return d.connected.Load()
}

func (d *Discord) handlerConnect() func(
	s *discordgo.Session,
	r *discordgo.Connect,
) {
	return func(s *discordgo.Session, r *discordgo.Connect) {
		d.metricConnects.Add(1)
		d.connected.Store(true)
		var sessionID string
		var userID string
		var username string

		if s != nil && s.State != nil {
			sessionID = s.State.SessionID
			if s.State.User != nil {
				userID = s.State.User.ID
				username = s.State.User.Username
			}
		}
		d.logger.Info(
			"Connected",
			"session_id", sessionID,
			slog.Group("user", "id", userID, "username", username),
		)
	}
}

func (d *Discord) handlerDisconnect() func(
	s *discordgo.Session,
	r *discordgo.Disconnect,
) {
	return func(s *discordgo.Session, r *discordgo.Disconnect) {
		d.connected.Store(false)
		d.metricDisconnects.Add(1)

		var sessionID string
		if s != nil && s.State != nil {
			sessionID = s.State.SessionID
		}
		d.logger.Info("disconnected", "session_id", sessionID)
	}
}

// registerCommands sends the bot's commands to the discord bulk overwrite
// endpoint, replacing whatever was registered before
func (d *Discord) registerCommands(
	options ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	appID := d.applicationID()
	if appID == "" {
		return nil, errUnknownApplicationID
	}

	created, err := d.session.ApplicationCommandBulkOverwrite(
		appID,
		d.config.GuildID,
		commandDefinitions(),
		options...,
	)
	if err != nil {
		d.logger.Error("error overwriting discord commands", tint.Err(err))
		return created, err
	}
	if len(created) == 0 {
		d.logger.Warn("no commands created")
	}

	return created, nil
}

// queueChannel resolves the given queue channel ID, returning an error
// if it isn't a valid ID or the channel can't be found
func (d *Discord) queueChannel(channelID string) (*discordgo.Channel, error) {
	if !isSnowflake(channelID) {
		return nil, fmt.Errorf("invalid channel ID: %q", channelID)
	}
	ch, err := d.session.Channel(channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("channel %s not found", channelID)
	}
	return ch, nil
}

// DiscordSessionHandler is the subset of [discordgo.Session] the bot uses,
// so tests can swap in a recording mock.
type DiscordSessionHandler interface {
	// Open creates a websocket connection to Discord
	Open() error

	// Close closes the websocket connection to Discord
	Close() error

	// AddHandler adds a discord gateway event handler
	AddHandler(handler any) func()

	// SetIdentify sets the identify object that's sent during the initial
	// handshake with the discord gateway
	SetIdentify(discordgo.Identify)

	// SetLogLevel modifies the session's log level
	SetLogLevel(lvl slog.Level) error

	// UpdateCustomStatus sets the bot's user status to the given string.
	// If empty, sets the bot user to active and removes any existing
	// custom status.
	UpdateCustomStatus(status string) error

	// ApplicationCommandBulkOverwrite replaces the application's commands
	// with the given set. An empty guildID registers them globally.
	ApplicationCommandBulkOverwrite(
		appID string,
		guildID string,
		commands []*discordgo.ApplicationCommand,
		options ...discordgo.RequestOption,
	) ([]*discordgo.ApplicationCommand, error)

	// InteractionRespond sends an interaction response to Discord
	InteractionRespond(
		interaction *discordgo.Interaction,
		resp *discordgo.InteractionResponse,
		options ...discordgo.RequestOption,
	) error

	// FollowupMessageCreate sends a followup message for a (usually
	// deferred) interaction
	FollowupMessageCreate(
		interaction *discordgo.Interaction,
		wait bool,
		data *discordgo.WebhookParams,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	// Channel returns the channel with the given ID, from the state cache
	// if present, otherwise from the API
	Channel(
		channelID string,
		options ...discordgo.RequestOption,
	) (*discordgo.Channel, error)

	// ChannelMessage fetches a single message from a channel
	ChannelMessage(
		channelID string,
		messageID string,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	// ChannelMessageSendComplex sends a message with embeds/components
	// to the given channel
	ChannelMessageSendComplex(
		channelID string,
		data *discordgo.MessageSend,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	// ChannelMessageEditComplex edits an existing message
	ChannelMessageEditComplex(
		m *discordgo.MessageEdit,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
}

// DiscordSession is the live [DiscordSessionHandler]. Sends, followups
// and command syncs are logged here so handlers don't have to.
type DiscordSession struct {
	session *discordgo.Session
	logger  *slog.Logger
}

func (d DiscordSession) SetLogLevel(lvl slog.Level) error {
	switch lvl.Level() {
	case slog.LevelInfo:
		d.session.LogLevel = discordgo.LogInformational
	case slog.LevelWarn:
		d.session.LogLevel = discordgo.LogWarning
	case slog.LevelDebug:
		d.session.LogLevel = discordgo.LogDebug
	case slog.LevelError:
		d.session.LogLevel = discordgo.LogError
	default:
		return fmt.Errorf("invalid log level: %s", lvl)
	}
	return nil
}

func (d DiscordSession) SetIdentify(i discordgo.Identify) {
	d.session.Identify = i
}

func (d DiscordSession) InteractionRespond(
	interaction *discordgo.Interaction,
	resp *discordgo.InteractionResponse,
	options ...discordgo.RequestOption,
) error {
	return d.session.InteractionRespond(interaction, resp, options...)
}

func (d DiscordSession) FollowupMessageCreate(
	interaction *discordgo.Interaction,
	wait bool,
	data *discordgo.WebhookParams,
	options ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	msg, err := d.session.FollowupMessageCreate(interaction, wait, data, options...)
	if err != nil {
		d.logger.Error("error creating followup message", tint.Err(err))
	}
	return msg, err
}

func (d DiscordSession) Channel(
	channelID string,
	options ...discordgo.RequestOption,
) (*discordgo.Channel, error) {
	if d.session.StateEnabled && d.session.State != nil {
		if ch, err := d.session.State.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	ch, err := d.session.Channel(channelID, options...)
	if err != nil {
		d.logger.Warn("error retrieving channel", tint.Err(err), "channel_id", channelID)
	}
	return ch, err
}

func (d DiscordSession) ChannelMessage(
	channelID string,
	messageID string,
	options ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	return d.session.ChannelMessage(channelID, messageID, options...)
}

func (d DiscordSession) ChannelMessageSendComplex(
	channelID string,
	data *discordgo.MessageSend,
	options ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	msg, err := d.session.ChannelMessageSendComplex(channelID, data, options...)
	if err != nil {
		d.logger.Error(
			"error sending message",
			tint.Err(err),
			"channel_id", channelID,
		)
	} else {
		d.logger.Info(
			"sent message",
			"channel_id", channelID,
			"message_id", msg.ID,
		)
	}
	return msg, err
}

func (d DiscordSession) ChannelMessageEditComplex(
	m *discordgo.MessageEdit,
	options ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	return d.session.ChannelMessageEditComplex(m, options...)
}

func (d DiscordSession) AddHandler(handler any) func() {
	return d.session.AddHandler(handler)
}

func (d DiscordSession) Open() error {
	return d.session.Open()
}

func (d DiscordSession) Close() error {
	return d.session.Close()
}

func (d DiscordSession) ApplicationCommandBulkOverwrite(
	appID string,
	guildID string,
	commands []*discordgo.ApplicationCommand,
	options ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	created, err := d.session.ApplicationCommandBulkOverwrite(
		appID,
		guildID,
		commands,
		options...,
	)
	if err != nil {
		d.logger.Error("error overwriting discord commands", tint.Err(err))
		return created, err
	}
	for _, c := range created {
		d.logger.Info("Created command", "command", c.Name, "id", c.ID)
	}

	return created, nil
}

func (d DiscordSession) UpdateCustomStatus(status string) error {
	return d.session.UpdateCustomStatus(status)
}

// getDiscordUser returns the user who triggered the interaction. In a
// guild that's Member.User, in DMs it's User.
func getDiscordUser(i *discordgo.InteractionCreate) *discordgo.User {
	u := i.User
	if u == nil && i.Member != nil {
		u = i.Member.User
	}
	return u
}
