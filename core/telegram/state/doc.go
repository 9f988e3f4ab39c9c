// Package state provides a lightweight FSM/session manager for Telegram bots.
// Conversations are declared as ordered step sequences; the Machine drives a
// user session through the sequence one update at a time.
package state
