package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/calorico/core/telegram"
	"github.com/m3rciful/calorico/core/telegram/middleware"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// FSM defines the minimal interface for a conversation machine.
// Commands bound to their own endpoints bypass this routing entirely, which
// is what lets /start and /help pre-empt an active conversation.
type FSM interface {
	InProgress(userID int64) bool
	AcceptsCallback(userID int64) bool
	Handle(c tele.Context) error
}

// TextOptions controls fallback behaviour for text/document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for text and document routing.
// Dispatch order: active conversation first, then slash commands typed as
// plain text, then registered text rules in declaration order, then the
// catch-all fallback.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm", start, "", "", func() error {
				return fsmMgr.Handle(c)
			})
		}

		// Only slash-prefixed text may dispatch a command; a bare command
		// word ("start", "menu") is ordinary text and falls through to the
		// rules and the catch-all.
		if reg != nil && strings.HasPrefix(text, "/") {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if rule, ok := reg.MatchTextRule(text); ok {
				extras := []slog.Attr{slog.String("rule", rule.Name)}
				return handleWithSummary(c, "rule."+rule.Name, start, "", "", func() error {
					return rule.Handler(c)
				}, extras...)
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm_document", start, "", "", func() error {
				return fsmMgr.Handle(c)
			})
		}
		if opts.UnknownDocument != nil {
			return handleWithSummary(c, "unexpected_document", start, "", "", func() error {
				return opts.UnknownDocument(c)
			})
		}
		logHandlerSummary(c, "unexpected_document", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(docHandler)),
		},
	}
}
