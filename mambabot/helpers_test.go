package mambabot

import (
	"bytes"
	"context"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"log/slog"
	"testing"
)

func TestDiscordgoLogLevels(t *testing.T) {
	testCases := []struct {
		name           string
		inputLogLevel  int
		expectedSLevel slog.Level
	}{
		{
			name:           "Debug level",
			inputLogLevel:  discordgo.LogDebug,
			expectedSLevel: slog.LevelDebug,
		},
		{
			name:           "Error level",
			inputLogLevel:  discordgo.LogError,
			expectedSLevel: slog.LevelError,
		},
		{
			name:           "Warning level",
			inputLogLevel:  discordgo.LogWarning,
			expectedSLevel: slog.LevelWarn,
		},
		{
			name:           "Informational level",
			inputLogLevel:  discordgo.LogInformational,
			expectedSLevel: slog.LevelInfo,
		},
	}

	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				result, ok := discordGoLogLevels[tc.inputLogLevel]
				assert.True(t, ok)
				assert.Equal(
					t,
					tc.expectedSLevel,
					result,
					"Unexpected slog level for input %d",
					tc.inputLogLevel,
				)
			},
		)
	}
}

func TestDiscordgoLoggerFunc(t *testing.T) {
	var buf bytes.Buffer
	logFunc := discordgoLoggerFunc(
		context.Background(),
		newLogHandler(&buf, slog.LevelWarn),
	)

	logFunc(discordgo.LogInformational, 0, "hidden %s", "message")
	assert.Empty(t, buf.String())

	logFunc(discordgo.LogError, 0, "websocket %s\nclosed", "was")
	assert.Contains(t, buf.String(), "websocket wasclosed")
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Event", capitalize("event"))
	assert.Equal(t, "Event", capitalize("EVENT"))
	assert.Equal(t, "Accepted", capitalize("accepted"))
	assert.Equal(t, "Élan", capitalize("élan"))
	assert.Equal(t, "", capitalize(""))
}

func TestIsSnowflake(t *testing.T) {
	assert.True(t, isSnowflake("748739492856332376"))
	assert.True(t, isSnowflake("777"))
	assert.False(t, isSnowflake(""))
	assert.False(t, isSnowflake("<#777>"))
	assert.False(t, isSnowflake("general"))
	assert.False(t, isSnowflake("-1"))
}

func TestOptionString(t *testing.T) {
	u := newDiscordUser(t)
	i := newCommandInteraction(
		t, u, "555", DiscordSlashCommandEvent,
		stringOption(eventOptionEvent, "Giveaway"),
	)
	opts := discordInteractionOptions(i)
	assert.Equal(t, "Giveaway", optionString(opts, eventOptionEvent))
	assert.Equal(t, "", optionString(opts, eventOptionLink))
}

func TestContextLogger(t *testing.T) {
	_, ok := ContextLogger(context.Background())
	assert.False(t, ok)

	logger := slog.Default().With("test_name", t.Name())
	ctx := WithLogger(context.Background(), logger)
	got, ok := ContextLogger(ctx)
	assert.True(t, ok)
	assert.Equal(t, logger, got)

	ctx = WithLogger(context.Background(), nil)
	got, ok = ContextLogger(ctx)
	assert.True(t, ok)
	assert.NotNil(t, got)
}

func TestStructToSlogValue(t *testing.T) {
	type inner struct {
		Name   string `json:"name"`
		Secret string `json:"secret" log:"***"`
	}
	type outer struct {
		ID    string `json:"id,omitempty"`
		Inner *inner `json:"inner"`
		Empty string `json:"empty"`
	}

	v := structToSlogValue(outer{ID: "1", Inner: &inner{Name: "n", Secret: "s"}})
	s := v.String()
	assert.Contains(t, s, "id=1")
	assert.Contains(t, s, "name=n")
	assert.Contains(t, s, "secret=***")
	assert.NotContains(t, s, "empty")

	assert.Equal(t, slog.KindAny, structToSlogValue(nil).Kind())
}
