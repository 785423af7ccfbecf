package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/bloodlife/core/telegram"
	"github.com/m3rciful/bloodlife/core/telegram/callbacks"
	"github.com/m3rciful/bloodlife/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute returns a handler that routes callbacks FSM-first, then
// through the registry, then to the not-found fallback.
func CallbackRoute(fsm FSM, reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key := callbacks.CallbackKey(c)
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		_ = c.Respond()

		if fsm != nil && fsm.InProgress(c.Sender().ID) {
			return handleWithSummary(c, name, start, func() error {
				return fsm.Handle(c)
			}, extras...)
		}

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			cbHandler = reg.CallbackNotFound()
			extras = append(extras, slog.String("reason", "not_found"))
		}
		return handleWithSummary(c, name, start, func() error {
			if cbHandler != nil {
				return cbHandler(c)
			}
			return nil
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
