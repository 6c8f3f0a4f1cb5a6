// Package daemon wires config, logging, history and the scheduler into the
// long-running chimed process.
package daemon

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chimekit/chime"
	"github.com/chimekit/chime/internal/config"
	"github.com/chimekit/chime/internal/events"
	"github.com/chimekit/chime/internal/history"
	"github.com/chimekit/chime/internal/runner"
	"github.com/chimekit/chime/internal/supervisor"
	"github.com/chimekit/chime/pkg/logx"
)

// StopReason labels why the daemon is shutting down.
type StopReason string

const (
	StopSignal     StopReason = "signal"
	StopFatalError StopReason = "fatal error"
	StopRequested  StopReason = "requested"
)

type Daemon struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  events.Bus
	hist history.Store

	runs *runner.Service

	mu    sync.Mutex
	sched *chime.Scheduler
}

func New(cfgPath string) (*Daemon, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(cfg.Logging.Logx())
	log = log.With(logx.String("comp", "daemon"))

	bus := events.New()

	// Run history (optional)
	var hist history.Store
	if hc, enabled, err := mapHistoryConfig(cfg); err != nil {
		logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := history.Open(hc, log.With(logx.String("comp", "history")))
		if err != nil {
			logSvc.Close()
			return nil, err
		}
		hist = st
		log.Info("history enabled", logx.String("driver", hc.Driver))
	}

	runs := runner.New(log.With(logx.String("comp", "runner")), bus)

	return &Daemon{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		hist:    hist,
		runs:    runs,
	}, nil
}

// Done is closed when the daemon supervisor context is canceled
// (fatal error or Stop()).
func (d *Daemon) Done() <-chan struct{} {
	if d.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return d.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (d *Daemon) Err() error {
	if d.sup == nil {
		return nil
	}
	return d.sup.Err()
}

func (d *Daemon) Start(ctx context.Context) error {
	d.sup = supervisor.New(ctx, supervisor.WithLogger(d.log), supervisor.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	d.cfgm.SetLogger(d.log.With(logx.String("comp", "config")))
	d.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		_, _, err := mapHistoryConfig(cfg)
		return err
	})

	cfg := d.cfgm.Get()
	if err := d.rebuild(d.sup.Context(), cfg); err != nil {
		return err
	}

	// Bus -> history writer (only when a store is configured).
	if d.hist != nil {
		evs, unsub := d.bus.Subscribe(128)
		d.sup.Go0("history.write", func(c context.Context) {
			defer unsub()
			for {
				select {
				case <-c.Done():
					return
				case e, ok := <-evs:
					if !ok {
						return
					}
					ent := history.Entry{
						At:     e.At,
						Task:   e.Task,
						Kind:   e.Kind,
						TookMS: e.Took.Milliseconds(),
						Detail: e.Detail,
					}
					if err := d.hist.Append(c, ent); err != nil {
						d.log.Debug("history append failed", logx.Any("err", err))
					}
				}
			}
		})
	}

	// hot reload config fan-out
	sub := d.cfgm.Subscribe(8)
	d.sup.Go0("config.reload", func(c context.Context) {
		defer d.cfgm.Unsubscribe(sub)
		// Track last applied config to generate a safe diff summary.
		lastApplied := d.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				sections, attrs, changedTasks := config.SummarizeChange(lastApplied, newCfg)
				if len(sections) > 0 {
					fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
					d.log.Debug("config change summary", fields...)
					if len(changedTasks) > 0 {
						d.log.Debug("task config changes detected", logx.Any("tasks", changedTasks))
					}
				} else {
					d.log.Debug("config reload received, but no effective changes detected")
				}
				lastApplied = newCfg

				for _, s := range sections {
					if s == "history" {
						d.log.Warn("history config changed; restart required for changes to take effect")
						break
					}
				}

				// apply logging updates
				d.logs.Apply(newCfg.Logging.Logx())

				rebuild := false
				for _, s := range sections {
					if s == "timezone" || s == "tasks" {
						rebuild = true
						break
					}
				}
				if rebuild {
					if err := d.rebuild(c, newCfg); err != nil {
						d.log.Warn("invalid task set; keeping previous", logx.Any("err", err))
					}
				}

				if len(sections) > 0 {
					fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
					d.log.Info("config reloaded", fields...)
				} else {
					d.log.Info("config reloaded (no changes)")
				}
			}
		}
	})

	d.sup.Go("config.watch", func(c context.Context) error {
		return d.cfgm.Watch(c)
	})

	notifyReady(d.log)
	d.log.Info("daemon started", logx.Int("tasks", len(cfg.Tasks)))
	return nil
}

// rebuild replaces the running scheduler with one built from cfg.
//
// Task construction happens before the old scheduler stops, so an invalid
// task set never takes down the tasks that are already running.
func (d *Daemon) rebuild(ctx context.Context, cfg *config.Config) error {
	tasks, err := d.runs.Build(cfg.Tasks)
	if err != nil {
		return err
	}

	d.mu.Lock()
	old := d.sched
	d.sched = nil
	d.mu.Unlock()

	if old != nil {
		old.Stop()
		stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := old.Wait(stopCtx); err != nil {
			d.log.Warn("previous task set still draining", logx.Any("err", err))
		}
		cancel()
	}

	sch := d.newScheduler(cfg)
	for _, t := range tasks {
		sch.Run(t)
	}

	d.mu.Lock()
	d.sched = sch
	d.mu.Unlock()

	if old != nil {
		d.log.Info("tasks reloaded", logx.Int("tasks", len(cfg.Tasks)))
	}
	return nil
}

func (d *Daemon) newScheduler(cfg *config.Config) *chime.Scheduler {
	opts := []chime.Option{
		chime.WithLogger(d.log.With(logx.String("comp", "scheduler"))),
		chime.WithContext(d.sup.Context()),
	}
	loc, ok, err := config.ResolveTimezone(cfg.Timezone)
	if err != nil {
		// Validation rejects bad zones before they get here; keep the default.
		d.log.Warn("invalid timezone; using default", logx.Any("err", err))
	} else if ok {
		opts = append(opts, chime.WithLocation(loc))
	}
	return chime.New(opts...)
}

func (d *Daemon) Stop(ctx context.Context, reason StopReason) error {
	if d.sup == nil {
		return nil
	}
	d.log.Info("stopping", logx.String("reason", string(reason)))
	notifyStopping(d.log)

	// Cancel the run context first so background loops start unwinding.
	d.sup.Cancel()

	// Run a shutdown step with an upper bound so one component can't stall
	// the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		d.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				rem := time.Until(dl)
				if rem <= 0 {
					max = 0
				} else if rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				d.log.Warn("stop step error", logx.String("name", name), logx.String("err", err.Error()))
			}
			took := time.Since(start)
			if took >= 500*time.Millisecond {
				d.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
			} else {
				d.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
			}
		case <-stepCtx.Done():
			d.log.Warn(
				"stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.String("err", stepCtx.Err().Error()),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error {
		d.mu.Lock()
		sch := d.sched
		d.mu.Unlock()
		if sch == nil {
			return nil
		}
		sch.Stop()
		return sch.Wait(c)
	})
	step("runner", 3*time.Second, func(c context.Context) error { return d.runs.Drain(c) })
	step("history", 1*time.Second, func(c context.Context) error {
		if d.hist != nil {
			return d.hist.Close()
		}
		return nil
	})

	// Finally, wait for supervised goroutines (config watch/reload, history writer).
	step("supervisor", 2*time.Second, func(c context.Context) error { return d.sup.Wait(c) })

	d.log.Info("stopped")
	if d.logs != nil {
		d.logs.Close()
	}
	return nil
}

func mapHistoryConfig(cfg *config.Config) (history.Config, bool, error) {
	if cfg == nil || cfg.History == nil {
		return history.Config{}, false, nil
	}
	h := cfg.History
	driver := strings.ToLower(strings.TrimSpace(h.Driver))
	if driver == "" || driver == "none" {
		return history.Config{}, false, nil
	}
	busy, err := config.ParseDurationField("history.busy_timeout", h.BusyTimeout)
	if err != nil {
		return history.Config{}, false, err
	}
	return history.Config{
		Driver:      driver,
		Path:        h.Path,
		Keep:        h.Keep,
		BusyTimeout: busy,
	}, true, nil
}
