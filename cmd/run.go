package cmd

import (
	"errors"
	"github.com/mamba-bro/Mamba-bot/mambabot"
	"github.com/spf13/cobra"
	"log"
)

var (
	runCmd = &cobra.Command{
		Use:   "run [flags]",
		Short: "Start the bot and serve /event_setup, /event and review buttons",
		Long: `Loads the event config file, connects to the discord gateway,
syncs the bot's slash commands, and queues event donations for review
until interrupted. In-flight interactions get up to shutdown_timeout
to finish.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			bot, err := mambabot.New(cfg)
			if err != nil {
				log.Fatalf("error creating bot: %v", err)
			}

			if err = bot.Run(cmd.Context()); err != nil {
				if errors.Is(err, mambabot.ErrShutdownTimeout) {
					log.Fatalf("bot stopped with interactions still running: %v", err)
				}
				log.Fatalf("error running bot: %v", err)
			}
		},
	}
)

//goland:noinspection GoLinter
func init() {
	rootCmd.AddCommand(runCmd)
}
