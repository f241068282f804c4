package cmd

import (
	"context"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/mamba-bro/Mamba-bot/mambabot"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
)

var (
	cfg        = mambabot.DefaultConfig()
	configFile string
)

// levelKeys are the config keys holding log levels
var levelKeys = []string{
	"log_level",
	"discord.log_level",
	"discord.discordgo_log_level",
}

var rootCmd = &cobra.Command{
	Use:   "mambabot [flags]",
	Short: "Discord bot for queueing and reviewing event donations",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := viper.Unmarshal(
			cfg,
			viper.DecodeHook(
				mapstructure.ComposeDecodeHookFunc(
					mapstructure.StringToTimeDurationHookFunc(),
					LevelToStringHookFunc(),
					StringToEmbedColorHookFunc(),
				),
			),
		)
		if err != nil {
			log.Fatalln(err)
		}
	},
}

// LevelToStringHookFunc decodes level names (ex: "warn", "DEBUG") into
// a *slog.LevelVar
func LevelToStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(&slog.LevelVar{}) {
			return data, nil
		}
		lvlVar, err := levelStringToLevelVar(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s", data)
		}
		return lvlVar, nil
	}
}

// StringToEmbedColorHookFunc decodes hex color strings (ex: "#3498db")
// into a [mambabot.EmbedColor]
func StringToEmbedColorHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t != reflect.TypeOf(mambabot.EmbedColor(0)) {
			return data, nil
		}
		return mambabot.ParseEmbedColor(data.(string))
	}
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	rootCmd.SetContext(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(
		signals,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer func() {
		signal.Stop(signals)
		cancel()
	}()
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			//
		}
	}()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initConfig() {
	if configFile == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		}
	} else {
		fmt.Println("loading env from file", configFile)
		if err := godotenv.Load(configFile); err != nil {
			log.Println("No .env file found")
		}
	}

	viper.SetDefault("log_level", mambabot.DefaultLogLevel.String())
	viper.SetDefault("event_config_file", mambabot.DefaultEventConfigFile)
	viper.SetDefault("startup_timeout", mambabot.DefaultStartupTimeout)
	viper.SetDefault("shutdown_timeout", mambabot.DefaultShutdownTimeout)

	// Discord config
	viper.SetDefault("discord.application_id", "")
	viper.SetDefault("discord.guild_id", "")
	viper.SetDefault("discord.privileged_user_id", mambabot.DefaultPrivilegedUserID)
	viper.SetDefault("discord.custom_status", mambabot.DefaultDiscordCustomStatus)
	viper.SetDefault(
		"discord.log_level",
		mambabot.DefaultDiscordLogLevel.String(),
	)
	viper.SetDefault(
		"discord.discordgo_log_level",
		mambabot.DefaultDiscordgoLogLevel.String(),
	)
	viper.SetDefault(
		"discord.gateway_intents",
		mambabot.DefaultDiscordGatewayIntent,
	)

	// Event submission config
	viper.SetDefault("event.submit_cooldown", mambabot.DefaultSubmitCooldown)
	viper.SetDefault("event.pending_color", mambabot.DefaultPendingColor)
	viper.SetDefault("event.accepted_color", mambabot.DefaultAcceptedColor)
	viper.SetDefault("event.denied_color", mambabot.DefaultDeniedColor)

	envPrefix := os.Getenv(mambabot.EnvvarSetEnvPrefix)
	if envPrefix == "" {
		envPrefix = mambabot.DefaultEnvPrefix
	}
	viper.SetEnvPrefix(envPrefix)

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	// the prefixed variable wins if both are set
	if err := viper.BindEnv(
		"discord.token",
		fmt.Sprintf("%s_DISCORD_TOKEN", envPrefix),
		mambabot.EnvvarToken,
	); err != nil {
		log.Fatalf("error binding discord token: %v", err)
	}

	for _, key := range levelKeys {
		logLevelVar, err := viperLevelVar(key)
		if err != nil {
			log.Fatalf("error parsing %s: %v", key, err)
		}
		viper.Set(key, logLevelVar)
	}
}

// viperLevelVar returns the log level set for key, which may already
// have been converted by a previous initConfig
func viperLevelVar(key string) (*slog.LevelVar, error) {
	if lvl, ok := viper.Get(key).(*slog.LevelVar); ok {
		return lvl, nil
	}
	return levelStringToLevelVar(viper.GetString(key))
}

func levelStringToLevelVar(lvl string) (*slog.LevelVar, error) {
	level := &slog.LevelVar{}
	err := level.UnmarshalText([]byte(lvl))
	return level, err
}

//goland:noinspection GoLinter,GoLinter
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Config file to use",
	)
}
