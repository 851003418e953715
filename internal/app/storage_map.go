package app

import (
	"strings"
	"time"

	"requestbot/internal/config"
	"requestbot/internal/delivery"
	"requestbot/internal/observability/metrics"
	"requestbot/internal/poller"
	"requestbot/internal/render"
	"requestbot/internal/source"
	"requestbot/internal/storage"
	kit "requestbot/internal/transport"
	telegram "requestbot/internal/transport/telegram/adapter"
	logx "requestbot/pkg/logx"
)

const (
	defaultSQLiteBusy = time.Second

	startupNotice  = "🤖 <b>Request notifications bot started</b>\n\nTracking new callback and service requests."
	shutdownNotice = "🛑 <b>Request notifications bot stopped</b>"
)

func mapTelegramConfig(cfg *config.Config, r config.Resolved) telegram.Config {
	return telegram.Config{Token: strings.TrimSpace(cfg.Telegram.Token), RequestTimeout: r.RequestTimeout}
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	chat := strings.TrimSpace(cfg.Logging.Telegram.Chat)
	if chat == "" {
		chat = strings.TrimSpace(cfg.Telegram.ChannelID)
	}
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			Chat:       chat,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapSourceConfig(cfg *config.Config, r config.Resolved) source.Config {
	busy := r.SourceBusyTimeout
	if busy <= 0 {
		busy = defaultSQLiteBusy
	}
	return source.Config{
		Driver:       cfg.Source.Driver,
		DSN:          strings.TrimSpace(cfg.Source.DSN),
		ContactTable: cfg.Source.ContactTable,
		ServiceTable: cfg.Source.ServiceTable,
		BusyTimeout:  busy,
		Location:     r.Location,
	}
}

func mapStorageConfig(cfg *config.Config, r config.Resolved) storage.Config {
	busy := r.StateBusyTimeout
	if busy <= 0 {
		busy = defaultSQLiteBusy
	}
	return storage.Config{
		Driver:        strings.TrimSpace(cfg.State.Driver),
		Path:          strings.TrimSpace(cfg.State.Path),
		BusyTimeout:   busy,
		RedisAddr:     cfg.State.RedisAddr,
		RedisPassword: cfg.State.RedisPassword,
		RedisDB:       cfg.State.RedisDB,
		RedisKey:      cfg.State.RedisKey,
	}
}

func mapRenderConfig(cfg *config.Config, r config.Resolved) render.Config {
	return render.Config{
		AdminURL:         cfg.Render.AdminURL,
		ContactAdminPath: cfg.Render.ContactAdminPath,
		ServiceAdminPath: cfg.Render.ServiceAdminPath,
		Location:         r.Location,
		TextLimit:        cfg.Render.TextLimit,
		MaxAttachments:   cfg.Render.MaxAttachments,
		Placeholder:      cfg.Render.Placeholder,
		Labels:           cfg.Render.ServiceLabels,
		MediaRoot:        cfg.Render.MediaRoot,
	}
}

func mapDeliveryConfig(cfg *config.Config, r config.Resolved) delivery.Config {
	return delivery.Config{
		Target:      kit.ChatTarget{Chat: strings.TrimSpace(cfg.Telegram.ChannelID), ThreadID: cfg.Telegram.ThreadID},
		SendTimeout: r.SendTimeout,
		RatePerSec:  cfg.Delivery.RatePerSec,
		Burst:       cfg.Delivery.Burst,
	}
}

func mapPollerConfig(r config.Resolved) poller.Config {
	pc := poller.Config{
		Interval:       r.Interval,
		GroupWindow:    r.GroupWindow,
		SuppressWindow: r.SuppressWindow,
		NoticeTimeout:  r.SendTimeout,
	}
	if r.StartupNotice {
		pc.StartupNotice = startupNotice
	}
	if r.ShutdownNotice {
		pc.ShutdownNotice = shutdownNotice
	}
	return pc
}

func mapMetricsConfig(cfg *config.Config) metrics.ServerConfig {
	return metrics.ServerConfig{
		Enabled:       cfg.Metrics.Enabled,
		Addr:          cfg.Metrics.Addr,
		Token:         cfg.Metrics.Token,
		AllowInsecure: cfg.Metrics.AllowInsecure,
		Pprof:         cfg.Metrics.Pprof,
		ReadTimeout:   10 * time.Second,
	}
}
