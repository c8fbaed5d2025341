// Package app wires configuration, logging, the telegram sender, the
// content client, the publisher and the poll loop into one process.
package app

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"pubbot/internal/config"
	"pubbot/internal/content"
	"pubbot/internal/poller"
	"pubbot/internal/publisher"
	"pubbot/internal/runtime/supervisor"
	"pubbot/internal/storage"
	kit "pubbot/internal/transport"
	telegram "pubbot/internal/transport/telegram"
	logx "pubbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	store storage.Store
	poll  *poller.Service

	sup *supervisor.Supervisor
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))

	tgTimeout, err := config.ParseDuration("telegram.timeout", cfg.Telegram.Timeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	sender, err := telegram.New(telegram.Config{
		Token:   cfg.Telegram.Token,
		Timeout: tgTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	// Logging service. logx.New() applies immediately; bootstrap with
	// the telegram sink disabled, point it at the log group, then apply
	// the final config so a missing target doesn't warn spuriously.
	baseLogCfg := logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    false,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
	logSvc, log := logx.New(baseLogCfg, sender)
	log = log.With(logx.String("comp", "app"))

	if raw := strings.TrimSpace(cfg.Telegram.GroupLog); raw != "" {
		if chatID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			logSvc.SetTelegramTarget(kit.ChatTarget{ChatID: chatID})
		}
	}
	finalLogCfg := baseLogCfg
	finalLogCfg.Telegram.Enabled = cfg.Logging.Telegram.Enabled
	logSvc.Apply(finalLogCfg)

	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	// Storage (optional).
	var store storage.Store
	if sc := cfg.Storage; sc != nil {
		busy, err := config.ParseDuration("storage.busy_timeout", sc.BusyTimeout, 0)
		if err != nil {
			return nil, err
		}
		retention, err := config.ParseDuration("storage.retention", sc.Retention, 0)
		if err != nil {
			return nil, err
		}
		st, err := storage.Open(storage.Config{
			Driver:      sc.Driver,
			Path:        sc.Path,
			BusyTimeout: busy,
			Retention:   retention,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		if store != nil {
			log.Info("delivery audit store enabled", logx.String("driver", sc.Driver))
		}
	}

	apiTimeout, err := config.ParseDuration("content_api.timeout", cfg.ContentAPI.Timeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	client := content.NewClient(content.Config{
		BaseURL: cfg.ContentAPI.BaseURL,
		Timeout: apiTimeout,
	}, log.With(logx.String("comp", "content")))

	pub := publisher.New(publisher.Config{
		GeneralChannel: kit.ChatTarget{ChatID: cfg.Telegram.GeneralChannel},
		SendRate:       cfg.Telegram.SendRate,
	}, sender, log.With(logx.String("comp", "publisher")))

	cycleTimeout, err := config.ParseDuration("poller.cycle_timeout", cfg.Poller.CycleTimeout, 0)
	if err != nil {
		return nil, err
	}
	poll := poller.New(poller.Config{
		Enabled:      cfg.Poller.Enabled,
		Timezone:     cfg.Poller.Timezone,
		CycleTimeout: cycleTimeout,
	}, client, pub, store, log.With(logx.String("comp", "poller")))

	return &App{
		cfgm:  cfgm,
		log:   log,
		logs:  logSvc,
		store: store,
		poll:  poll,
	}, nil
}

func validate(cfg *config.Config) error {
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("config: telegram.token is required (or BOT_TOKEN)")
	}
	if strings.TrimSpace(cfg.ContentAPI.BaseURL) == "" {
		return errors.New("config: content_api.base_url is required (or API_BASE_URL)")
	}
	if cfg.Telegram.GeneralChannel == 0 {
		return errors.New("config: telegram.general_channel is required")
	}
	return nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))

	// Config hot-reload applies logging changes only; everything else
	// is startup-bound.
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})
	a.sup.Go0("config.apply", func(c context.Context) {
		ch := a.cfgm.Subscribe(1)
		defer a.cfgm.Unsubscribe(ch)
		for {
			select {
			case <-c.Done():
				return
			case cfg, ok := <-ch:
				if !ok || cfg == nil {
					return
				}
				a.logs.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.Enabled,
						Path:    cfg.Logging.File.Path,
					},
					Telegram: logx.TelegramConfig{
						Enabled:    cfg.Logging.Telegram.Enabled,
						MinLevel:   cfg.Logging.Telegram.MinLevel,
						RatePerSec: cfg.Logging.Telegram.RatePerSec,
					},
				})
				a.log.Info("logging config applied")
			}
		}
	})

	if err := a.poll.Start(ctx); err != nil {
		a.sup.Cancel()
		return err
	}

	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	// Poller first: lets the in-flight batch finish before sinks close.
	err := a.poll.Stop(ctx)

	if a.sup != nil {
		a.sup.Cancel()
		_ = a.sup.Wait(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}

	a.log.Info("stopped")
	_ = a.logs.Close()
	return err
}
