package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/calorico/core/logger"
	"github.com/m3rciful/calorico/core/telegram/commands"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Registry holds bot commands, callbacks, and ordered dispatch rules.
type Registry struct {
	commands         map[string]commands.Command
	callbacks        map[string]tele.HandlerFunc
	callbacksMu      sync.RWMutex
	textRules        []TextRule
	callbackRules    []CallbackRule
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry with default fallbacks.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			_ = c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
			return nil
		},
	}
}

func twire() *slog.Logger {
	if logger.TWire != nil {
		return logger.TWire
	}
	return slog.Default()
}

// RegisterCommand adds a new command.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if r == nil || name == "" || cmd.Handler == nil || cmd.Description == "" {
		twire().LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return
	}
	if name[0] != '/' {
		twire().LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "no_slash_prefix"),
		)
		return
	}
	if _, exists := r.commands[name]; exists {
		twire().LogAttrs(context.Background(), slog.LevelWarn, "register.command.duplicate",
			slog.String("name", name),
		)
		return
	}
	r.commands[name] = cmd
}

// ListCommands returns a slice of tele.Command, optionally filtering out hidden and admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	var list []tele.Command
	for cmd, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: cmd, Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand searches for a command by name or its aliases and returns the canonical key with metadata if found.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if alias == name || "/"+alias == name {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// RegisterTextRule appends a named dispatch rule for plain message text.
// Rules keep their registration order; the first matching rule wins.
func (r *Registry) RegisterTextRule(name string, m Matcher, handler tele.HandlerFunc) error {
	if r == nil || name == "" || m == nil || handler == nil {
		twire().LogAttrs(context.Background(), slog.LevelWarn, "register.rule.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return errors.New("invalid text rule registration")
	}
	for _, rule := range r.textRules {
		if rule.Name == name {
			twire().LogAttrs(context.Background(), slog.LevelWarn, "register.rule.duplicate",
				slog.String("name", name),
			)
			return fmt.Errorf("text rule already registered: %s", name)
		}
	}
	r.textRules = append(r.textRules, TextRule{Name: name, Match: m, Handler: handler})
	return nil
}

// MatchTextRule returns the first registered rule matching the given text.
func (r *Registry) MatchTextRule(text string) (TextRule, bool) {
	for _, rule := range r.textRules {
		if rule.Match.Match(text) {
			return rule, true
		}
	}
	return TextRule{}, false
}

// ListTextRules returns rule names in evaluation order (for diagnostics).
func (r *Registry) ListTextRules() []string {
	names := make([]string, 0, len(r.textRules))
	for _, rule := range r.textRules {
		names = append(names, rule.Name)
	}
	return names
}

// RegisterCallbackRule appends a named regex rule over raw callback data.
// Exact callback keys registered via RegisterCallback take precedence.
func (r *Registry) RegisterCallbackRule(name string, pattern string, handler tele.HandlerFunc) error {
	if r == nil || name == "" || pattern == "" || handler == nil {
		twire().LogAttrs(context.Background(), slog.LevelWarn, "register.cbrule.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return errors.New("invalid callback rule registration")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		twire().LogAttrs(context.Background(), slog.LevelWarn, "register.cbrule.skip",
			slog.String("name", name),
			slog.String("reason", "bad_pattern"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("callback rule pattern: %w", err)
	}
	for _, rule := range r.callbackRules {
		if rule.Name == name {
			twire().LogAttrs(context.Background(), slog.LevelWarn, "register.cbrule.duplicate",
				slog.String("name", name),
			)
			return fmt.Errorf("callback rule already registered: %s", name)
		}
	}
	r.callbackRules = append(r.callbackRules, CallbackRule{Name: name, Pattern: re, Handler: handler})
	return nil
}

// MatchCallbackRule returns the first callback rule whose pattern matches data.
func (r *Registry) MatchCallbackRule(data string) (CallbackRule, bool) {
	for _, rule := range r.callbackRules {
		if rule.Pattern.MatchString(data) {
			return rule, true
		}
	}
	return CallbackRule{}, false
}

// RegisterCallback adds a callback handler mapped to its key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if r == nil || key == "" || handler == nil {
		twire().LogAttrs(context.Background(), slog.LevelWarn, "register.callback.skip",
			slog.String("key", key),
			slog.Bool("handler_nil", handler == nil),
		)
		return errors.New("invalid callback registration")
	}
	r.callbacksMu.Lock()
	defer r.callbacksMu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		twire().LogAttrs(context.Background(), slog.LevelWarn, "register.callback.duplicate",
			slog.String("key", key),
		)
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback safely returns handler by key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns sorted keys (for diagnostics).
func (r *Registry) ListCallbacks() []string {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetCallbackNotFound replaces the fallback handler for unknown callbacks.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

// CallbackNotFound returns the current fallback callback handler.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// SetTextFallback sets a global fallback handler for unknown text messages.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

// TextFallback returns the current text fallback handler.
func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}

// InitBotCommands sets the Telegram bot commands shown in the command menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	commands := reg.ListCommands(true)
	if err := bot.SetCommands(commands); err != nil {
		twire().LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}
