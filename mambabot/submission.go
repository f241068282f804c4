package mambabot

import (
	"fmt"
	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
	"log/slog"
	"sync"
	"time"
)

const (
	embedTitlePending = "📅 | Event Pending"
	embedStatusToken  = "Pending"
)

// EventSubmission is an event donation offered via /event
type EventSubmission struct {
	Event   string
	Message string
	Link    string
	Donor   *discordgo.User
}

func (s EventSubmission) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("event", s.Event),
		slog.String("message", s.Message),
		slog.String("link", s.Link),
	}
	if s.Donor != nil {
		attrs = append(attrs, slog.String("donor_id", s.Donor.ID))
	}
	return slog.GroupValue(attrs...)
}

// Embed renders the pending submission card
func (s EventSubmission) Embed(color EmbedColor) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: embedTitlePending,
		Color: int(color),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🎪 Event", Value: s.Event, Inline: false},
			{Name: "🏆 Other Info", Value: "msg: " + s.Message, Inline: false},
			{Name: "🔗 Message Link", Value: fmt.Sprintf("[Click here](%s)", s.Link), Inline: false},
			{Name: "😊 Donor", Value: s.Donor.Mention(), Inline: false},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: s.Donor.ID},
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: s.Donor.AvatarURL("")},
	}
}

// MessageSend builds the message posted to the queue channel: a ping for
// the configured role, the pending embed, and Accept/Deny buttons.
// Only the configured role and the donor can be mentioned.
func (s EventSubmission) MessageSend(roleID string, color EmbedColor) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: fmt.Sprintf(
			"<@&%s> %s would like to donate for an event.",
			roleID,
			s.Donor.Mention(),
		),
		Embeds: []*discordgo.MessageEmbed{s.Embed(color)},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					AcceptButton(reviewSubjectEvent),
					DenyButton(reviewSubjectEvent),
				},
			},
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Roles: []string{roleID},
			Users: []string{s.Donor.ID},
		},
	}
}

// submitLimiterPruneSize is the number of tracked users at which idle
// limiters start being dropped
const submitLimiterPruneSize = 1024

// submitLimiter enforces a per-user cooldown between event submissions
type submitLimiter struct {
	every    time.Duration
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

func newSubmitLimiter(every time.Duration) *submitLimiter {
	return &submitLimiter{
		every:    every,
		limiters: map[string]*rate.Limiter{},
	}
}

// reserve consumes the user's submission allowance. If the user is
// still cooling down, nothing is consumed, and the remaining wait is
// returned.
func (l *submitLimiter) reserve(userID string) (bool, time.Duration) {
	if l == nil || l.every <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.limiters) >= submitLimiterPruneSize {
		l.prune()
	}

	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.every), 1)
		l.limiters[userID] = lim
	}

	r := lim.Reserve()
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return false, delay
	}
	return true, 0
}

// release gives back the allowance taken by reserve, for a submission
// that was never posted. With a burst of 1, dropping the user's limiter
// restores it in full.
func (l *submitLimiter) release(userID string) {
	if l == nil || l.every <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, userID)
}

// prune drops limiters for users whose cooldown has fully elapsed.
// Callers must hold l.mu.
func (l *submitLimiter) prune() {
	for id, lim := range l.limiters {
		if lim.Tokens() >= float64(lim.Burst()) {
			delete(l.limiters, id)
		}
	}
}
