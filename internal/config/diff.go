package config

import (
	"reflect"

	logx "requestbot/pkg/logx"
)

// Sections applied without a restart.
var liveSections = map[string]bool{"logging": true, "metrics": true}

// Change summarizes a reload.
type Change struct {
	// Sections lists changed top-level keys in file order.
	Sections []string
	// RestartRequired lists changed sections that only take effect after restart.
	RestartRequired []string
	// Attrs are safe to log; secrets are reported as set/unset only.
	Attrs []logx.Field
}

func (c Change) Empty() bool { return len(c.Sections) == 0 }

// SummarizeConfigChange compares two configs section by section.
func SummarizeConfigChange(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var ch Change
	mark := func(name string, changed bool, attrs ...logx.Field) {
		if !changed {
			return
		}
		ch.Sections = append(ch.Sections, name)
		if !liveSections[name] {
			ch.RestartRequired = append(ch.RestartRequired, name)
		}
		ch.Attrs = append(ch.Attrs, attrs...)
	}

	mark("telegram", oldCfg.Telegram != newCfg.Telegram,
		logx.Bool("telegram.token_set", newCfg.Telegram.Token != ""),
		logx.String("telegram.channel_id", newCfg.Telegram.ChannelID),
	)
	mark("logging", oldCfg.Logging != newCfg.Logging,
		logx.String("logging.level", newCfg.Logging.Level),
		logx.Bool("logging.console", newCfg.Logging.Console),
		logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
	)
	mark("source", oldCfg.Source != newCfg.Source,
		logx.String("source.driver", newCfg.Source.Driver),
	)
	mark("state", oldCfg.State != newCfg.State,
		logx.String("state.driver", newCfg.State.Driver),
	)
	mark("poller", !reflect.DeepEqual(oldCfg.Poller, newCfg.Poller),
		logx.String("poller.interval", newCfg.Poller.Interval),
	)
	mark("render", !reflect.DeepEqual(oldCfg.Render, newCfg.Render),
		logx.String("render.timezone", newCfg.Render.Timezone),
	)
	mark("delivery", oldCfg.Delivery != newCfg.Delivery)
	mark("metrics", oldCfg.Metrics != newCfg.Metrics,
		logx.Bool("metrics.enabled", newCfg.Metrics.Enabled),
		logx.String("metrics.addr", newCfg.Metrics.Addr),
		logx.Bool("metrics.token_set", newCfg.Metrics.Token != ""),
	)
	return ch
}
