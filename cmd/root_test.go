package cmd

import (
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/mamba-bro/Mamba-bot/mambabot"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// resetConfig clears the environment, viper and the package config,
// restoring the original environment when the test finishes
func resetConfig(t testing.TB) {
	t.Helper()
	originalEnv := os.Environ()
	t.Cleanup(
		func() {
			os.Clearenv()
			for _, envVar := range originalEnv {
				parts := strings.SplitN(envVar, "=", 2)
				os.Setenv(parts[0], parts[1])
			}
			viper.Reset()
			cfg = mambabot.DefaultConfig()
			configFile = ""
		},
	)

	os.Clearenv()
	viper.Reset()
	cfg = mambabot.DefaultConfig()
	configFile = ""
}

func assertLogLevel(t testing.TB, expected slog.Level, v any) {
	t.Helper()

	lvl, ok := v.(*slog.LevelVar)
	require.Truef(t, ok, "could not convert %#v (%T) to *slog.LevelVar", v, v)
	assert.Equal(t, expected, lvl.Level())
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	resetConfig(t)

	tmpdir := t.TempDir()

	// Set up the test environment file
	envFile := filepath.Join(tmpdir, "test.env")

	envContent := `
# General config

MAMBA_LOG_LEVEL=WARN
MAMBA_EVENT_CONFIG_FILE=/var/lib/mambabot/event_config.json
MAMBA_STARTUP_TIMEOUT=15s
MAMBA_SHUTDOWN_TIMEOUT=60s

# Discord bot config

MAMBA_DISCORD_TOKEN=your-discord-bot-token
MAMBA_DISCORD_APPLICATION_ID=1234
MAMBA_DISCORD_GUILD_ID=
MAMBA_DISCORD_PRIVILEGED_USER_ID=42
MAMBA_DISCORD_CUSTOM_STATUS="Taking donations"
MAMBA_DISCORD_LOG_LEVEL=DEBUG
MAMBA_DISCORD_DISCORDGO_LOG_LEVEL=ERROR
MAMBA_DISCORD_GATEWAY_INTENTS=513

# Event submissions

MAMBA_EVENT_SUBMIT_COOLDOWN=5m
MAMBA_EVENT_PENDING_COLOR="#ffff00"
MAMBA_EVENT_ACCEPTED_COLOR="#00ff00"
MAMBA_EVENT_DENIED_COLOR="#ff0000"
`

	err := os.WriteFile(envFile, []byte(envContent), 0644)
	assert.NoError(t, err)

	rootCmd.SetArgs([]string{fmt.Sprintf("--config=%s", envFile), "version"})
	require.NoError(t, rootCmd.Execute())

	assertLogLevel(t, slog.LevelWarn, viper.Get("log_level"))
	assert.Equal(t, "/var/lib/mambabot/event_config.json", viper.GetString("event_config_file"))
	assert.Equal(t, 15*time.Second, viper.GetDuration("startup_timeout"))
	assert.Equal(t, 60*time.Second, viper.GetDuration("shutdown_timeout"))

	assert.Equal(t, "your-discord-bot-token", viper.GetString("discord.token"))
	assert.Equal(t, "1234", viper.GetString("discord.application_id"))
	assert.Equal(t, "", viper.GetString("discord.guild_id"))
	assertLogLevel(t, slog.LevelDebug, viper.Get("discord.log_level"))
	assertLogLevel(t, slog.LevelError, viper.Get("discord.discordgo_log_level"))
	assert.Equal(t, 513, viper.GetInt("discord.gateway_intents"))

	assert.Equal(t, slog.LevelWarn, cfg.LogLevel.Level())
	assert.Equal(t, "/var/lib/mambabot/event_config.json", cfg.EventConfigFile)
	assert.Equal(t, 15*time.Second, cfg.StartupTimeout)
	assert.Equal(t, 60*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, "your-discord-bot-token", cfg.Discord.Token)
	assert.Equal(t, "1234", cfg.Discord.ApplicationID)
	assert.Equal(t, "", cfg.Discord.GuildID)
	assert.Equal(t, "42", cfg.Discord.PrivilegedUserID)
	assert.Equal(t, "Taking donations", cfg.Discord.CustomStatus)
	assert.Equal(t, slog.LevelDebug, cfg.Discord.LogLevel.Level())
	assert.Equal(t, slog.LevelError, cfg.Discord.DiscordGoLogLevel.Level())
	assert.Equal(t, discordgo.Intent(513), cfg.Discord.GatewayIntents)

	assert.Equal(t, 5*time.Minute, cfg.Event.SubmitCooldown)
	assert.Equal(t, mambabot.EmbedColor(0xffff00), cfg.Event.PendingColor)
	assert.Equal(t, mambabot.EmbedColor(0x00ff00), cfg.Event.AcceptedColor)
	assert.Equal(t, mambabot.EmbedColor(0xff0000), cfg.Event.DeniedColor)

	require.NoError(t, cfg.Validate())
}

func TestConfigDefaults(t *testing.T) {
	resetConfig(t)

	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, mambabot.DefaultEventConfigFile, cfg.EventConfigFile)
	assert.Equal(t, mambabot.DefaultPrivilegedUserID, cfg.Discord.PrivilegedUserID)
	assert.Equal(t, mambabot.DefaultDiscordGatewayIntent, cfg.Discord.GatewayIntents)
	assert.Equal(t, mambabot.DefaultLogLevel, cfg.LogLevel.Level())
	assert.Equal(t, mambabot.DefaultDiscordgoLogLevel, cfg.Discord.DiscordGoLogLevel.Level())
	assert.Equal(t, mambabot.EmbedColor(0x3498db), cfg.Event.PendingColor)
	assert.Equal(t, mambabot.EmbedColor(0x2ecc71), cfg.Event.AcceptedColor)
	assert.Equal(t, mambabot.EmbedColor(0xe74c3c), cfg.Event.DeniedColor)
	assert.Equal(t, "", cfg.Discord.Token)
}

func TestTokenEnvironmentVariable(t *testing.T) {
	t.Run(
		"plain TOKEN", func(t *testing.T) {
			resetConfig(t)
			os.Setenv(mambabot.EnvvarToken, "plain-token")

			rootCmd.SetArgs([]string{"version"})
			require.NoError(t, rootCmd.Execute())
			assert.Equal(t, "plain-token", cfg.Discord.Token)
		},
	)

	t.Run(
		"prefixed token wins", func(t *testing.T) {
			resetConfig(t)
			os.Setenv(mambabot.EnvvarToken, "plain-token")
			os.Setenv("MAMBA_DISCORD_TOKEN", "prefixed-token")

			rootCmd.SetArgs([]string{"version"})
			require.NoError(t, rootCmd.Execute())
			assert.Equal(t, "prefixed-token", cfg.Discord.Token)
		},
	)
}

func TestCustomEnvPrefix(t *testing.T) {
	resetConfig(t)
	os.Setenv(mambabot.EnvvarSetEnvPrefix, "MB")
	os.Setenv("MB_EVENT_CONFIG_FILE", "/tmp/mb.json")
	os.Setenv("MB_DISCORD_TOKEN", "mb-token")

	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "/tmp/mb.json", cfg.EventConfigFile)
	assert.Equal(t, "mb-token", cfg.Discord.Token)
}

func TestStringToEmbedColorHookFunc(t *testing.T) {
	var eventConfig mambabot.EventConfig
	decoder, err := mapstructure.NewDecoder(
		&mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				StringToEmbedColorHookFunc(),
			),
			Result: &eventConfig,
		},
	)
	require.NoError(t, err)

	require.NoError(
		t,
		decoder.Decode(
			map[string]any{
				"submit_cooldown": "30s",
				"pending_color":   "#3498db",
				"accepted_color":  "#2ecc71",
			},
		),
	)
	assert.Equal(t, 30*time.Second, eventConfig.SubmitCooldown)
	assert.Equal(t, mambabot.EmbedColor(0x3498db), eventConfig.PendingColor)
	assert.Equal(t, mambabot.EmbedColor(0x2ecc71), eventConfig.AcceptedColor)

	err = decoder.Decode(map[string]any{"denied_color": "red"})
	assert.Error(t, err)
}

func TestLevelToStringHookFunc(t *testing.T) {
	var config struct {
		Level *slog.LevelVar `mapstructure:"level"`
	}
	decoder, err := mapstructure.NewDecoder(
		&mapstructure.DecoderConfig{
			DecodeHook: LevelToStringHookFunc(),
			Result:     &config,
		},
	)
	require.NoError(t, err)

	require.NoError(t, decoder.Decode(map[string]any{"level": "warn"}))
	assert.Equal(t, slog.LevelWarn, config.Level.Level())

	assert.Error(t, decoder.Decode(map[string]any{"level": "loud"}))
}
