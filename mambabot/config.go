//nolint:lll // struct tags can't be split
package mambabot

import (
	"errors"
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/lucasb-eyer/go-colorful"
	"log/slog"
	"time"
)

const (
	EnvvarSetEnvPrefix = "MAMBABOT_ENV_PREFIX"
	DefaultEnvPrefix   = "MAMBA"

	// EnvvarToken is the unprefixed environment variable the bot token
	// has always been read from. It's bound in addition to the prefixed
	// `MAMBA_DISCORD_TOKEN`.
	EnvvarToken = "TOKEN"

	DefaultLogLevel          = slog.LevelInfo
	DefaultDiscordLogLevel   = slog.LevelInfo
	DefaultDiscordgoLogLevel = slog.LevelWarn
	DefaultStartupTimeout    = 30 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultEventConfigFile   = "event_config.json"

	// DefaultPrivilegedUserID is the only user allowed to run /bot_refresh
	DefaultPrivilegedUserID     = "748739492856332376"
	DefaultDiscordGatewayIntent = discordgo.IntentsGuilds
	DefaultDiscordCustomStatus  = ""

	DefaultSubmitCooldown = time.Duration(0)

	// Embed colors, matching the platform palette
	DefaultPendingColor  = "#3498db"
	DefaultAcceptedColor = "#2ecc71"
	DefaultDeniedColor   = "#e74c3c"

	DiscordSlashCommandEventSetup = "event_setup"
	DiscordSlashCommandEvent      = "event"
	DiscordSlashCommandBotRefresh = "bot_refresh"
)

// Config is the top-level bot configuration, populated by viper in `cmd`
type Config struct {
	// LogLevel is the base log level, for the default logger
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// EventConfigFile is the path of the JSON file holding each server's
	// event setup (mention role, queue channel)
	EventConfigFile string `yaml:"event_config_file" mapstructure:"event_config_file" json:"event_config_file"`

	// StartupTimeout limits how long loading the event config and opening
	// the discord session may take
	StartupTimeout time.Duration `yaml:"startup_timeout" mapstructure:"startup_timeout" json:"startup_timeout"`

	// ShutdownTimeout is how long to wait for in-flight interactions
	// before closing the session anyway
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" json:"shutdown_timeout"`

	Discord *DiscordConfig `yaml:"discord" mapstructure:"discord" json:"discord"`

	Event *EventConfig `yaml:"event" mapstructure:"event" json:"event"`
}

func (c Config) LogValue() slog.Value {
	return structToSlogValue(c)
}

// Validate returns every problem found with the config, joined
func (c Config) Validate() error {
	var errs []error
	if c.Discord == nil || c.Discord.Token == "" {
		errs = append(
			errs,
			fmt.Errorf("discord token not set (set %s or %s_DISCORD_TOKEN)", EnvvarToken, DefaultEnvPrefix),
		)
	}
	if c.Discord != nil && c.Discord.PrivilegedUserID == "" {
		errs = append(errs, errors.New("discord.privileged_user_id must be set"))
	}
	if c.EventConfigFile == "" {
		errs = append(errs, errors.New("event_config_file must be set"))
	}
	if c.StartupTimeout <= 0 {
		errs = append(errs, errors.New("startup_timeout must be > 0"))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("shutdown_timeout must be >= 0"))
	}
	if c.Event != nil && c.Event.SubmitCooldown < 0 {
		errs = append(errs, errors.New("event.submit_cooldown must be >= 0"))
	}
	return errors.Join(errs...)
}

// DiscordConfig configures the discord session and command registration
type DiscordConfig struct {
	// Discord bot token (from the 'Bot' tab in the discord dev portal)
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]"`

	// Discord application ID. If empty, it's taken from the Ready event.
	ApplicationID string `yaml:"application_id" mapstructure:"application_id" json:"application_id"`

	// GuildID specifies the guild ID used when registering slash commands.
	// Leave empty for commands to be registered as global.
	GuildID string `yaml:"guild_id" mapstructure:"guild_id" json:"guild_id"`

	// PrivilegedUserID is the user allowed to use /bot_refresh
	PrivilegedUserID string `yaml:"privileged_user_id" mapstructure:"privileged_user_id" json:"privileged_user_id"`

	// CustomStatus, if set, is shown as the bot's status after connecting
	CustomStatus string `yaml:"custom_status" mapstructure:"custom_status" json:"custom_status"`

	// Discord gateway intents. See: https://discord.com/developers/docs/topics/gateway#gateway-intents
	GatewayIntents discordgo.Intent `yaml:"gateway_intents" mapstructure:"gateway_intents" json:"gateway_intents"`

	// Base discord logging level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Log level for the `discordgo` library's logger
	DiscordGoLogLevel *slog.LevelVar `yaml:"discordgo_log_level" mapstructure:"discordgo_log_level" json:"discordgo_log_level"`
}

// EventConfig configures event submissions and how they're rendered
type EventConfig struct {
	// SubmitCooldown is the minimum time between /event submissions from
	// the same user. 0=unlimited
	SubmitCooldown time.Duration `yaml:"submit_cooldown" mapstructure:"submit_cooldown" json:"submit_cooldown"`

	PendingColor  EmbedColor `yaml:"pending_color" mapstructure:"pending_color" json:"pending_color"`
	AcceptedColor EmbedColor `yaml:"accepted_color" mapstructure:"accepted_color" json:"accepted_color"`
	DeniedColor   EmbedColor `yaml:"denied_color" mapstructure:"denied_color" json:"denied_color"`
}

// EmbedColor is an RGB color packed the way discord expects embed colors
type EmbedColor int

// ParseEmbedColor parses a hex color like "#3498db"
func ParseEmbedColor(s string) (EmbedColor, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return EmbedColor(int(r)<<16 | int(g)<<8 | int(b)), nil
}

// MustParseEmbedColor is like ParseEmbedColor, but panics on error
func MustParseEmbedColor(s string) EmbedColor {
	c, err := ParseEmbedColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c EmbedColor) Hex() string {
	return fmt.Sprintf("#%06x", int(c))
}

func (c EmbedColor) LogValue() slog.Value {
	return slog.StringValue(c.Hex())
}

// DefaultConfig returns a Config with all default settings populated
func DefaultConfig() *Config {
	mainLogLevel := &slog.LevelVar{}
	discordLogLevel := &slog.LevelVar{}
	discordgoLogLevel := &slog.LevelVar{}

	mainLogLevel.Set(DefaultLogLevel)
	discordLogLevel.Set(DefaultDiscordLogLevel)
	discordgoLogLevel.Set(DefaultDiscordgoLogLevel)

	return &Config{
		LogLevel:        mainLogLevel,
		EventConfigFile: DefaultEventConfigFile,
		StartupTimeout:  DefaultStartupTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		Discord: &DiscordConfig{
			PrivilegedUserID:  DefaultPrivilegedUserID,
			CustomStatus:      DefaultDiscordCustomStatus,
			GatewayIntents:    DefaultDiscordGatewayIntent,
			LogLevel:          discordLogLevel,
			DiscordGoLogLevel: discordgoLogLevel,
		},
		Event: &EventConfig{
			SubmitCooldown: DefaultSubmitCooldown,
			PendingColor:   MustParseEmbedColor(DefaultPendingColor),
			AcceptedColor:  MustParseEmbedColor(DefaultAcceptedColor),
			DeniedColor:    MustParseEmbedColor(DefaultDeniedColor),
		},
	}
}
