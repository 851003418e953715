package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"requestbot/internal/config"
	"requestbot/internal/delivery"
	"requestbot/internal/observability/metrics"
	"requestbot/internal/poller"
	"requestbot/internal/render"
	"requestbot/internal/runtime/supervisor"
	"requestbot/internal/source"
	"requestbot/internal/storage"
	telegram "requestbot/internal/transport/telegram/adapter"
	logx "requestbot/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	cfg  *config.Config
	res  config.Resolved

	log  logx.Logger
	logs *logx.Service

	adapter *telegram.Adapter
	src     source.Reader
	store   storage.Store
	deliver *delivery.Client
	loop    *poller.Loop

	metrics    *metrics.Metrics
	metricsSrv *metrics.Server
	sd         Notifier

	sup *supervisor.Supervisor
}

// New loads the config and opens every collaborator. Nothing runs until Run.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", cfgPath, err)
	}
	res, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}

	ad, err := telegram.New(mapTelegramConfig(cfg, res), logx.NewConsole("INFO").With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}
	logSvc, log := logx.New(mapLoggingConfig(cfg), ad)
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{
		cfgm:    cfgm,
		cfg:     cfg,
		res:     res,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
		adapter: ad,
		metrics: metrics.New(),
		sd:      systemdNotifier{},
	}
	if err := a.open(ctx); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) open(ctx context.Context) error {
	var err error
	sc := mapSourceConfig(a.cfg, a.res)
	a.src, err = source.Open(ctx, sc, a.log.With(logx.String("comp", "source")))
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	stc := mapStorageConfig(a.cfg, a.res)
	a.store, err = storage.Open(ctx, stc, a.log.With(logx.String("comp", "storage")))
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	a.log.Info("resources opened", logx.String("source", sc.Driver), logx.String("state", stc.Driver))

	a.deliver = delivery.New(mapDeliveryConfig(a.cfg, a.res), a.adapter, a.log.With(logx.String("comp", "delivery")))
	renderer := render.New(mapRenderConfig(a.cfg, a.res), a.log.With(logx.String("comp", "render")))

	var ready sync.Once
	a.loop, err = poller.New(mapPollerConfig(a.res), poller.Deps{
		Source:   a.src,
		Store:    a.store,
		Delivery: a.deliver,
		Renderer: renderer,
		Metrics:  a.metrics,
		Log:      a.log.With(logx.String("comp", "poller")),
		Heartbeat: func() {
			ready.Do(func() { a.notify(sdReady) })
			a.notify(sdWatchdog)
		},
	})
	if err != nil {
		return err
	}
	a.metricsSrv = metrics.NewServer(mapMetricsConfig(a.cfg), a.metrics, a.log)
	return nil
}

func (a *App) notify(state string) {
	if a.sd == nil {
		return
	}
	if _, err := a.sd.Notify(state); err != nil {
		a.log.Debug("systemd notify failed", logx.String("state", state), logx.Err(err))
	}
}

// Run blocks until ctx is canceled or the poller fails to start.
func (a *App) Run(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	sctx := a.sup.Context()

	a.metricsSrv.Start(sctx)

	pollDone := make(chan struct{})
	a.sup.Go("poller", func(c context.Context) error {
		defer close(pollDone)
		return a.loop.Run(c)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
		return nil
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	a.log.Info("app started",
		logx.Duration("interval", a.res.Interval),
		logx.Duration("group_window", a.res.GroupWindow),
		logx.Duration("suppress_window", a.res.SuppressWindow))

	<-sctx.Done()
	reason := StopSignal
	if a.sup.Err() != nil {
		reason = StopFatalError
	}
	a.stop(reason, pollDone)
	return a.sup.Err()
}

// reloadLoop applies live sections (logging, metrics) and reports the rest.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			ch := config.SummarizeConfigChange(last, newCfg)
			last = newCfg
			if ch.Empty() {
				a.log.Info("config reloaded (no changes)")
				continue
			}
			a.logs.Apply(mapLoggingConfig(newCfg))
			a.metricsSrv.Reconfigure(ctx, mapMetricsConfig(newCfg))

			fields := append([]logx.Field{logx.String("changed", strings.Join(ch.Sections, ","))}, ch.Attrs...)
			a.log.Info("config reloaded", fields...)
			if len(ch.RestartRequired) > 0 {
				a.log.Warn("config changed; restart required for changes to take effect",
					logx.String("sections", strings.Join(ch.RestartRequired, ",")))
			}
		}
	}
}

func (a *App) stop(reason StopReason, pollDone <-chan struct{}) {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.notify(sdStopping)

	// The poller sends its shutdown notice on the way out; give it one send.
	select {
	case <-pollDone:
	case <-time.After(a.res.SendTimeout + 5*time.Second):
		a.log.Warn("poller did not stop in time")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	a.metricsSrv.Stop(stopCtx)
	if err := a.sup.Stop(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn("supervisor stop", logx.Err(err))
	}
	c := a.sup.Counters()
	a.log.Info("stopped", logx.Int64("active_goroutines", c.Active), logx.Int64("contact", a.loop.Cursors().Contact), logx.Int64("service", a.loop.Cursors().Service))
	a.closeResources()
}

func (a *App) closeResources() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("state close", logx.Err(err))
		}
	}
	if a.src != nil {
		if err := a.src.Close(); err != nil {
			a.log.Warn("source close", logx.Err(err))
		}
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}
