package mambabot

import (
	"context"
	"errors"
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

var (
	// When building, set these like:
	// -ldflags "-X github.com/mamba-bro/Mamba-bot/mambabot.Version=$$(date +'%Y%m%d')"

	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

var (
	defaultLogWriter io.Writer = os.Stdout
)

var ErrShutdownTimeout = errors.New("interaction handlers did not stop in time")

// Bot is the event donation bot. It connects to the discord gateway,
// registers its slash commands, and handles event setup, submission
// and review.
type Bot struct {
	config     *Config
	logger     *slog.Logger
	logHandler slog.Handler

	discord       *Discord
	store         *EventConfigStore
	submitLimiter *submitLimiter

	// getInteractionHandlerFunc returns the [InteractionHandler] for
	// a gateway interaction. Overridden in tests.
	getInteractionHandlerFunc func(
		ctx context.Context,
		i *discordgo.InteractionCreate,
	) InteractionHandler

	runMu     sync.Mutex
	startedAt time.Time

	// signalReady receives a value once Run has connected to discord
	signalReady chan struct{}

	// signalStop can be sent a value to stop a running bot
	signalStop chan struct{}

	// eventShutdown receives a value after shutdown completes
	eventShutdown chan struct{}
}

// New creates a new Bot with the given config. Missing sections and
// log levels are filled in from [DefaultConfig]. Any errors setting up
// the bot's components are joined and returned along with the bot.
func New(config *Config) (*Bot, error) {
	var errs []error

	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()
	if config.LogLevel == nil {
		config.LogLevel = defaults.LogLevel
	}
	if config.Discord == nil {
		config.Discord = defaults.Discord
	}
	if config.Discord.LogLevel == nil {
		config.Discord.LogLevel = defaults.Discord.LogLevel
	}
	if config.Discord.DiscordGoLogLevel == nil {
		config.Discord.DiscordGoLogLevel = defaults.Discord.DiscordGoLogLevel
	}
	if config.Event == nil {
		config.Event = defaults.Event
	}

	b := &Bot{
		config:        config,
		signalReady:   make(chan struct{}, 1),
		signalStop:    make(chan struct{}, 1),
		eventShutdown: make(chan struct{}, 1),
	}

	b.logHandler = newLogHandler(defaultLogWriter, b.config.LogLevel)
	b.logger = slog.New(b.logHandler)
	slog.SetDefault(b.logger)

	discordgo.Logger = discordgoLoggerFunc(
		context.Background(),
		newLogHandler(defaultLogWriter, b.config.Discord.DiscordGoLogLevel).WithAttrs(
			[]slog.Attr{slog.String(loggerNameKey, "discordgo")},
		),
	)

	disc := newDiscord(b.config.Discord)
	disc.logger = slog.New(
		newLogHandler(defaultLogWriter, b.config.Discord.LogLevel),
	).With(loggerNameKey, "discord")
	disc.bot = b
	b.discord = disc

	if b.config.EventConfigFile == "" {
		errs = append(errs, errors.New("event config file path required"))
	}
	b.store = NewEventConfigStore(
		b.config.EventConfigFile,
		b.logger.With(loggerNameKey, "event_config"),
	)

	b.submitLimiter = newSubmitLimiter(b.config.Event.SubmitCooldown)

	return b, errors.Join(errs...)
}

// Store returns the bot's per-server event config store
func (b *Bot) Store() *EventConfigStore {
	return b.store
}

// Ready returns a channel that receives a value once Run has
// connected to discord
func (b *Bot) Ready() <-chan struct{} {
	return b.signalReady
}

// Done returns a channel that receives a value once a Run has finished
// shutting down
func (b *Bot) Done() <-chan struct{} {
	return b.eventShutdown
}

// Stop signals a running bot to shut down
func (b *Bot) Stop() {
	select {
	case b.signalStop <- struct{}{}:
	default:
	}
}

// RegisterSlashCommands overwrites the bot's registered slash commands
// with the current definitions, returning the commands discord created.
func (b *Bot) RegisterSlashCommands(options ...discordgo.RequestOption) (
	[]*discordgo.ApplicationCommand,
	error,
) {
	return b.discord.registerCommands(options...)
}

// Run starts the bot: it validates the config, loads the event config
// file, connects to discord and handles interactions until ctx is
// canceled or Stop is called, then shuts down gracefully.
func (b *Bot) Run(ctx context.Context) error {
	// prevents concurrent runs
	b.runMu.Lock()
	defer b.runMu.Unlock()

	b.startedAt = time.Now()
	logger := b.logger

	if err := b.config.Validate(); err != nil {
		logger.Error("invalid config", tint.Err(err))
		return err
	}

	ctx = WithLogger(ctx, logger)
	logger.LogAttrs(ctx, slog.LevelInfo, "starting", slog.Any("config", b.config))

	// interaction handlers spawned from the gateway, waited on
	// during shutdown
	runtimeWG := &sync.WaitGroup{}

	// this is the 'runtime' context, which triggers a graceful shutdown
	// when canceled
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-b.signalStop:
			b.logger.Warn("got stop signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	startCtx, startCancel := context.WithTimeout(ctx, b.config.StartupTimeout)
	defer startCancel()

	initErr := make(chan error, 1)
	go func() {
		logger.Debug("initializing run...")
		initErr <- b.initRun(ctx, runtimeWG)
	}()

	select {
	case <-startCtx.Done():
		// initRun isn't interruptible, so wait for it, and close whatever
		// session it managed to open
		if err := <-initErr; err == nil {
			b.closeDiscord(ctx)
		}
		return fmt.Errorf("startup cancelled or timed out")
	case err := <-initErr:
		if err != nil {
			logger.ErrorContext(ctx, "init error", tint.Err(err))
			return err
		}
		logger.InfoContext(ctx, "init complete")
	}

	select {
	case b.signalReady <- struct{}{}:
	default:
	}
	b.logger.InfoContext(ctx, "sent ready signal")

	// block until something cancels the main runtime context
	<-ctx.Done()

	return b.shutdown(ctx, runtimeWG)
}

// initRun loads the event config file and connects to discord
func (b *Bot) initRun(ctx context.Context, runtimeWG *sync.WaitGroup) error {
	if err := b.store.Load(); err != nil {
		return err
	}

	if err := b.initDiscordSession(ctx, runtimeWG); err != nil {
		return fmt.Errorf("error creating discord session: %w", err)
	}

	return b.discordInit(ctx)
}

// initDiscordSession creates the discord session (if one hasn't already
// been set) and registers gateway event handlers
func (b *Bot) initDiscordSession(ctx context.Context, runtimeWG *sync.WaitGroup) error {
	logger := b.logger.With(loggerNameKey, "discord_session")

	if b.discord.session == nil {
		disc, discErr := b.discord.newSession()
		if discErr != nil {
			return discErr
		}
		b.discord.session = disc
	}

	ctx = WithLogger(ctx, logger)

	if len(b.discord.discordgoRemoveHandlerFuncs) > 0 {
		for _, h := range b.discord.discordgoRemoveHandlerFuncs {
			h()
		}
	}

	b.discord.session.SetIdentify(
		discordgo.Identify{Intents: b.config.Discord.GatewayIntents},
	)

	if b.getInteractionHandlerFunc == nil {
		b.getInteractionHandlerFunc = func(
			_ context.Context,
			i *discordgo.InteractionCreate,
		) InteractionHandler {
			return GatewayHandler{
				session:     b.discord.session,
				interaction: i,
				logger: b.logger.With(
					slog.Group(
						"interaction",
						interactionLogAttrs(*i)...,
					),
				),
			}
		}
	}

	b.discord.discordgoRemoveHandlerFuncs = []func(){
		b.discord.session.AddHandler(b.discord.handlerConnect()),
		b.discord.session.AddHandler(b.discord.handlerDisconnect()),
		b.discord.session.AddHandler(b.discord.handlerReady(ctx)),
		b.discord.session.AddHandler(
			func(
				_ *discordgo.Session,
				i *discordgo.InteractionCreate,
			) {
				handler := b.getInteractionHandlerFunc(ctx, i)
				runtimeWG.Add(1)
				go func() {
					defer runtimeWG.Done()
					b.dispatchInteraction(ctx, handler)
				}()
			},
		),
	}

	return nil
}

// dispatchInteraction handles an interaction, recovering from any panic
// so a single bad interaction doesn't take the bot down
func (b *Bot) dispatchInteraction(ctx context.Context, handler InteractionHandler) {
	defer func() {
		if rc := recover(); rc != nil {
			b.handleRecover(WithLogger(ctx, handler.Logger()), rc)
		}
	}()
	b.handleInteraction(ctx, handler)
}

// discordInit opens the discord websocket connection, and sets the
// bot's custom status if one is configured
func (b *Bot) discordInit(ctx context.Context) error {
	logger := b.logger
	logger.InfoContext(ctx, "connecting to discord")
	if err := b.discord.session.Open(); err != nil {
		logger.ErrorContext(ctx, "error connecting to discord!", tint.Err(err))
		return fmt.Errorf("error connecting to discord: %w", err)
	}
	if status := b.config.Discord.CustomStatus; status != "" {
		go func() {
			if statusErr := b.discord.session.UpdateCustomStatus(status); statusErr != nil {
				logger.Error("error updating discord status", tint.Err(statusErr))
			}
		}()
	}
	return nil
}

// shutdown waits for in-flight interactions to finish, up to
// [Config.ShutdownTimeout], then closes the discord session
func (b *Bot) shutdown(
	ctx context.Context,
	runtimeWG *sync.WaitGroup,
) error {
	b.logger.WarnContext(ctx, "shutting down")
	defer func() {
		select {
		case b.eventShutdown <- struct{}{}:
		default:
		}
	}()

	shutdownStart := time.Now()
	shutdownDeadline := shutdownStart.Add(b.config.ShutdownTimeout)

	b.logger.InfoContext(
		ctx,
		"exiting!",
		"connected", b.discord.Connected(),
		"shutdown_timeout", b.config.ShutdownTimeout,
		"shutdown_started", shutdownStart,
		"shutdown_deadline", shutdownDeadline,
	)

	closeCtx, closeCancel := context.WithDeadline(
		context.Background(),
		shutdownDeadline,
	)
	defer closeCancel()

	gracefulShutdownCh := make(chan struct{}, 1)
	go func() {
		runtimeWG.Wait()
		gracefulShutdownCh <- struct{}{}
	}()

	var err error
	select {
	case <-gracefulShutdownCh:
	case <-closeCtx.Done():
		select {
		case <-gracefulShutdownCh:
		default:
			err = ErrShutdownTimeout
		}
	}
	if err != nil {
		b.logger.Warn("interaction handlers did not stop in time, forcing close")
	} else {
		b.logger.InfoContext(
			ctx,
			"finished handling in-flight interactions",
			"runtime_stop_duration", time.Since(shutdownStart),
		)
	}

	b.closeDiscord(ctx)

	shutdownEnded := time.Now()
	b.logger.InfoContext(
		ctx,
		"shutdown complete",
		"shutdown_ended", shutdownEnded,
		"shutdown_duration", shutdownEnded.Sub(shutdownStart),
		"uptime", shutdownEnded.Sub(b.startedAt),
		"gateway_connects", b.discord.metricConnects.Load(),
		"gateway_disconnects", b.discord.metricDisconnects.Load(),
	)
	return err
}

func (b *Bot) closeDiscord(ctx context.Context) {
	if b.discord.session == nil {
		return
	}
	b.logger.InfoContext(ctx, "closing discord session")
	if err := b.discord.session.Close(); err != nil {
		b.logger.ErrorContext(ctx, "error closing discord session", tint.Err(err))
	}
	if len(b.discord.discordgoRemoveHandlerFuncs) > 0 {
		b.logger.InfoContext(
			ctx,
			fmt.Sprintf(
				"removing %d discord handlers",
				len(b.discord.discordgoRemoveHandlerFuncs),
			),
		)
		for _, h := range b.discord.discordgoRemoveHandlerFuncs {
			h()
		}
		b.discord.discordgoRemoveHandlerFuncs = nil
	}
}
