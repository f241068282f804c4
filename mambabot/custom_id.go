package mambabot

import (
	"fmt"
	"github.com/bwmarrin/discordgo"
	"log/slog"
	"strings"
)

// ReviewAction is the decision a reviewer makes by pressing one of the
// buttons attached to a queued event
type ReviewAction string

const (
	ReviewAccept ReviewAction = "accept"
	ReviewDeny   ReviewAction = "deny"
)

// reviewSubjectEvent is the subject used for event submission buttons
const reviewSubjectEvent = "event"

// customIDSeparator splits a button's action from its subject
const customIDSeparator = "_"

var (
	reviewActionStatus = map[ReviewAction]string{
		ReviewAccept: "accepted",
		ReviewDeny:   "denied",
	}
	reviewActionEmoji = map[ReviewAction]string{
		ReviewAccept: "✅",
		ReviewDeny:   "❌",
	}
)

func (a ReviewAction) valid() bool {
	_, ok := reviewActionStatus[a]
	return ok
}

// Status is the lower-case outcome of the action (ex: "accepted")
func (a ReviewAction) Status() string {
	return reviewActionStatus[a]
}

// CustomID represents a decoded `custom_id` discord button component
// field: the action the button performs, and what it acts on.
// `accept_event` decodes to {Action: ReviewAccept, Subject: "event"}.
type CustomID struct {
	Action  ReviewAction
	Subject string
}

func (c CustomID) String() string {
	return string(c.Action) + customIDSeparator + c.Subject
}

func (c CustomID) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("action", string(c.Action)),
		slog.String("subject", c.Subject),
	)
}

// decodeCustomID accepts a `custom_id` value that's been set in
// a discord button component, and decodes it into a `CustomID` struct.
// Only known actions are accepted.
func decodeCustomID(customID string) (CustomID, error) {
	parts := strings.Split(customID, customIDSeparator)
	if len(parts) != 2 {
		return CustomID{}, fmt.Errorf("invalid custom_id format: %q", customID)
	}

	action := ReviewAction(parts[0])
	if !action.valid() {
		return CustomID{}, fmt.Errorf("unknown custom_id action: %q", parts[0])
	}
	if parts[1] == "" {
		return CustomID{}, fmt.Errorf("missing custom_id subject: %q", customID)
	}

	return CustomID{Action: action, Subject: parts[1]}, nil
}

// reviewConfirmation is the message sent to the reviewer after pressing
// a button, ex: "Event accepted! ✅"
func reviewConfirmation(c CustomID) string {
	return fmt.Sprintf(
		"%s %s! %s",
		capitalize(c.Subject),
		c.Action.Status(),
		reviewActionEmoji[c.Action],
	)
}

// AcceptButton returns the button used to accept a queued submission
func AcceptButton(subject string) discordgo.Button {
	return discordgo.Button{
		Label:    "Accept",
		Style:    discordgo.SuccessButton,
		Disabled: false,
		CustomID: CustomID{Action: ReviewAccept, Subject: subject}.String(),
	}
}

// DenyButton returns the button used to deny a queued submission
func DenyButton(subject string) discordgo.Button {
	return discordgo.Button{
		Label:    "Deny",
		Style:    discordgo.DangerButton,
		Disabled: false,
		CustomID: CustomID{Action: ReviewDeny, Subject: subject}.String(),
	}
}
