package main

import (
	"context"
	"log"

	"github.com/m3rciful/bloodlife/core/bootstrap"
	"github.com/m3rciful/bloodlife/core/cmd"
	coreconfig "github.com/m3rciful/bloodlife/core/config"
	coretelegram "github.com/m3rciful/bloodlife/core/telegram"
	"github.com/m3rciful/bloodlife/internal/bot"

	tele "gopkg.in/telebot.v4"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		Bootstrap: func(cfg *coreconfig.Config) (coretelegram.RunOptions, error) {
			res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
			if err != nil {
				return coretelegram.RunOptions{}, err
			}

			app, err := bot.New(cfg, res.DB)
			if err != nil {
				return coretelegram.RunOptions{}, err
			}

			return coretelegram.RunOptions{
				Middlewares: coretelegram.DefaultMiddlewares(cfg, nil),
				Routes:      app.Routes(),
				OnStart: func(ctx context.Context, b *tele.Bot) error {
					coretelegram.InitBotCommands(b, app.Registry())
					return nil
				},
				OnStop: func(ctx context.Context, b *tele.Bot) error {
					if res.DB != nil {
						return res.DB.Close()
					}
					return nil
				},
			}, nil
		},
	})
	if err != nil {
		log.Fatalf("bloodlife: %v", err)
	}
}
