package cmd

import (
	"errors"
	"fmt"
	"github.com/mamba-bro/Mamba-bot/mambabot"
	"github.com/spf13/cobra"
	"io/fs"
	"log"
	"os"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the event config file, or check an existing one",
	Run: func(cmd *cobra.Command, args []string) {
		if cfg.EventConfigFile == "" {
			log.Fatalf(
				"Environment variable %s_EVENT_CONFIG_FILE not set (must be a file path)",
				mambabot.DefaultEnvPrefix,
			)
		}

		out := cmd.OutOrStdout()
		store := mambabot.NewEventConfigStore(cfg.EventConfigFile, nil)

		_, statErr := os.Stat(cfg.EventConfigFile)
		switch {
		case errors.Is(statErr, fs.ErrNotExist):
			if err := store.Save(); err != nil {
				log.Fatalf("Error creating event config file: %v", err)
			}
			fmt.Fprintf(out, "Created event config file: %s\n", store.Path())
		case statErr != nil:
			log.Fatalf("Error checking event config file: %v", statErr)
		default:
			if err := store.Load(); err != nil {
				log.Fatalf("Error reading event config file: %v", err)
			}
			fmt.Fprintf(
				out,
				"Event config file %s is valid, with %d server(s) configured.\n",
				store.Path(),
				len(store.All()),
			)
		}

		fmt.Fprintln(
			out,
			"Initialization complete. You can now start the bot with the 'run' subcommand.",
		)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
