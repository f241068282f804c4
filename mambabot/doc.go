// Package mambabot implements a Discord bot for collecting event donations.
//
// Server administrators use /event_setup to pick the role that gets pinged
// for new submissions, and the channel submissions are queued in. Members
// submit donations with /event, which posts a "pending" card with Accept
// and Deny buttons to the queue channel. Pressing either button re-titles
// and re-colors the card and removes the buttons.
//
// Each server's setup is kept in a JSON file (see [EventConfigStore]),
// which is rewritten whenever a setup changes.
//
// The bot owner can re-register every slash command with /bot_refresh.
package mambabot
