package main

import "github.com/mamba-bro/Mamba-bot/cmd"

func main() {
	cmd.Execute()
}
