package router

import (
	"time"

	tg "github.com/m3rciful/calorico/core/telegram"
	"github.com/m3rciful/calorico/core/telegram/middleware"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the registry.
// A conversation step that consumes callbacks pre-empts registry dispatch;
// other callbacks fall through to exact keys, then regex rules, then the
// not-found fallback.
func CallbackRoute(fsmMgr FSM, reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		if fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) && fsmMgr.AcceptsCallback(c.Sender().ID) {
			return handleWithSummary(c, "fsm_callback", start, "", "", func() error {
				return fsmMgr.Handle(c)
			})
		}

		key, _ := parseCallback(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		_ = c.Respond()

		if cbHandler, ok := reg.GetCallback(key); ok && cbHandler != nil {
			return handleWithSummary(c, name, start, "", "", func() error {
				return cbHandler(c)
			}, extras...)
		}

		if rule, ok := reg.MatchCallbackRule(rawCallbackData(c.Callback())); ok {
			extras = append(extras, slog.String("rule", rule.Name))
			return handleWithSummary(c, "callback_rule."+rule.Name, start, "", "", func() error {
				return rule.Handler(c)
			}, extras...)
		}

		fallback := reg.CallbackNotFound()
		if fallback == nil {
			fallback = opts.NotFound
		}
		extras = append(extras, slog.String("reason", "not_found"))
		return handleWithSummary(c, name, start, "", "", func() error {
			if fallback != nil {
				return fallback(c)
			}
			return nil
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
