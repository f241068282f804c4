package cmd

import (
	"fmt"
	"github.com/mamba-bro/Mamba-bot/mambabot"
	"github.com/stretchr/testify/assert"
	"io"
	"os"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	originalVersion := mambabot.Version
	originalCommitSHA := mambabot.CommitSHA
	originalBuildTime := mambabot.BuildTime

	t.Cleanup(
		func() {
			mambabot.Version = originalVersion
			mambabot.CommitSHA = originalCommitSHA
			mambabot.BuildTime = originalBuildTime
		},
	)

	mambabot.Version = "0.3.1"
	mambabot.CommitSHA = "4f2d9e1"
	mambabot.BuildTime = "2024-08-14T09:30:00Z"

	orig := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	t.Cleanup(
		func() {
			os.Stdout = orig
		},
	)

	versionCmd.Run(nil, nil)

	_ = w.Close()

	out, _ := io.ReadAll(r)
	output := string(out)
	t.Logf("output: %s", output)
	expected := fmt.Sprintf(
		"version=%s commit=%s built: %s",
		mambabot.Version,
		mambabot.CommitSHA,
		mambabot.BuildTime,
	)
	assert.Equal(t, expected, output)
}
