package router

import (
	"time"

	tg "github.com/m3rciful/bloodlife/core/telegram"
	"github.com/m3rciful/bloodlife/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is the minimal interface the router needs from a conversation manager.
// An update from a user with a run in progress always goes to the FSM first.
type FSM interface {
	InProgress(userID int64) bool
	Handle(c tele.Context) error
}

// MessageOptions declares fallback handlers for updates not claimed by the
// FSM, a command, or a menu button.
type MessageOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownLocation tele.HandlerFunc
	UnknownContact  tele.HandlerFunc
}

// MessageRoutes builds handlers for text, location, and contact updates.
func MessageRoutes(fsm FSM, reg *tg.Registry, opts MessageOptions) []tg.Route {
	textHandler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if fsm != nil && fsm.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm", start, func() error {
				return fsm.Handle(c)
			})
		}

		if reg != nil {
			if h, ok := reg.LookupButton(text); ok {
				return handleWithSummary(c, "button."+normalizeHandlerName(text), start, func() error {
					return h(c)
				})
			}
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, func() error {
				return opts.UnknownText(c)
			})
		}
		logHandlerSummary(c, "unknown_text", start, nil)
		return nil
	}

	locationHandler := func(c tele.Context) error {
		start := time.Now()
		if fsm != nil && fsm.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm_location", start, func() error {
				return fsm.Handle(c)
			})
		}
		if opts.UnknownLocation != nil {
			return handleWithSummary(c, "location", start, func() error {
				return opts.UnknownLocation(c)
			})
		}
		logHandlerSummary(c, "location", start, nil)
		return nil
	}

	contactHandler := func(c tele.Context) error {
		start := time.Now()
		if fsm != nil && fsm.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm_contact", start, func() error {
				return fsm.Handle(c)
			})
		}
		if opts.UnknownContact != nil {
			return handleWithSummary(c, "contact", start, func() error {
				return opts.UnknownContact(c)
			})
		}
		logHandlerSummary(c, "contact", start, nil)
		return nil
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(textHandler)},
		{Endpoint: tele.OnLocation, Handler: wrap(locationHandler)},
		{Endpoint: tele.OnContact, Handler: wrap(contactHandler)},
	}
}
