/*
 * MIT License
 *
 * Copyright (c) 2026 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command tinyweb starts the reactor server: it loads the on-disk
// configuration, wires up logging, the database pool and the worker
// pool, then runs the epoll loop until it is asked to stop.
package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sabouaram/tinyweb/asynclog"
	"github.com/sabouaram/tinyweb/authdemo"
	"github.com/sabouaram/tinyweb/config"
	"github.com/sabouaram/tinyweb/dbpool"
	liblog "github.com/sabouaram/tinyweb/logger"
	logcfg "github.com/sabouaram/tinyweb/logger/config"
	loghkf "github.com/sabouaram/tinyweb/logger/hookfile"
	loghke "github.com/sabouaram/tinyweb/logger/hookstderr"
	loghko "github.com/sabouaram/tinyweb/logger/hookstdout"
	loglvl "github.com/sabouaram/tinyweb/logger/level"
	logtps "github.com/sabouaram/tinyweb/logger/types"
	"github.com/sabouaram/tinyweb/metrics"
	"github.com/sabouaram/tinyweb/reactor"
	"github.com/sabouaram/tinyweb/site"
	"github.com/sabouaram/tinyweb/workerpool"
	"github.com/sirupsen/logrus"
)

// stderrLevels is the severity floor mirrored to standard error
// regardless of where the primary log stream goes, so a warning or
// worse is visible on the terminal even when stdout has been
// redirected or the primary sink is the rotating file writer.
var stderrLevels = []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}

func main() {
	// No flags are consumed; an optional first positional argument
	// overrides the configuration file path.
	cfgPath := "./tinyweb.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	if err := run(cfgPath); err != nil {
		stdlog.Fatalf("tinyweb: %v", err)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, hooks, writer, err := buildLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer stopHooks(hooks)
	if writer != nil {
		defer writer.Stop()
	}

	bridge := newStdBridge(log)

	html, err := site.Preload(cfg.Site.Path)
	if err != nil {
		return fmt.Errorf("preload site %s: %w", cfg.Site.Path, err)
	}

	pool, err := dbpool.Open(dbpool.Config{
		Host:          cfg.MySQL.Host,
		Port:          cfg.MySQL.Port,
		User:          cfg.MySQL.User,
		Password:      cfg.MySQL.Password,
		DBName:        cfg.MySQL.DB,
		MinConns:      cfg.MySQL.PoolMinSize,
		MaxConns:      cfg.MySQL.PoolMaxSize,
		LoggerFactory: func() liblog.Logger { return log },
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	auther := authdemo.NewDemoAuther(pool, 5*time.Second)

	srv, err := reactor.New(reactor.Config{
		Port:        cfg.Server.Port,
		IdleTimeout: time.Duration(cfg.Server.Timeout) * time.Millisecond,
		SitePath:    cfg.Site.Path,
		HTML:        html,
		Auth:        auther,
		Workers:     workerpool.DefaultWorkers(),
		QueueDepth:  256,
		Logger:      bridge,
	})
	if err != nil {
		return fmt.Errorf("start reactor: %w", err)
	}

	collector := metrics.New(srv, srv.Pool(), pool)
	_ = collector // Registry() is there for a caller to mount; nothing exposes it yet.

	watcher, err := config.Watch(cfgPath, func(fresh *config.Config) {
		log.SetLevel(loglvl.ParseFromInt(fresh.Log.Level))
	}, bridge)
	if err != nil {
		log.Warning("config: watch failed, continuing without hot-reload", err)
	} else {
		defer watcher.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	log.Info("tinyweb: starting on port %d", nil, cfg.Server.Port)
	err = srv.Run(ctx)
	log.Info("tinyweb: stopped", nil)
	return err
}

// buildLogger assembles the root Logger facade with the destinations
// config.Log describes: a rotating file hook (async, via asynclog) when
// log.output_to_file is set, a direct stdout hook otherwise, and a stderr
// hook that always mirrors warnings and worse regardless of which one
// carries the primary stream.
func buildLogger(lc config.Log) (liblog.Logger, []logtps.Hook, *asynclog.Writer, error) {
	log := liblog.New(context.Background())
	log.SetLevel(loglvl.ParseFromInt(lc.Level))

	var hooks []logtps.Hook
	var writer *asynclog.Writer

	if lc.OutputToFile {
		w, err := asynclog.New(lc.Directory, lc.Basename, lc.SizeMiB, 2*time.Second)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("asynclog: %w", err)
		}
		w.Start()
		writer = w

		fh, err := loghkf.New(loghkf.Options{EnableAccessLog: true}, w, nil)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("hookfile: %w", err)
		}
		hooks = append(hooks, fh)
	} else {
		oh, err := loghko.New(&logcfg.OptionsStd{DisableColor: !lc.Colorful}, nil, nil)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("hookstdout: %w", err)
		}
		if oh != nil {
			hooks = append(hooks, oh)
		}
	}

	eh, err := loghke.New(&logcfg.OptionsStd{DisableColor: !lc.Colorful}, stderrLevels, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("hookstderr: %w", err)
	}
	if eh != nil {
		hooks = append(hooks, eh)
	}

	log.RegisterHooks(hooks...)
	return log, hooks, writer, nil
}

// stopHooks closes each hook so IsRunning reports false once shutdown
// begins; the asynclog.Writer backing hookfile is stopped separately by
// its owner, since more than one hook can share a single Writer.
func stopHooks(hooks []logtps.Hook) {
	for _, h := range hooks {
		if h == nil {
			continue
		}
		_ = h.Close()
	}
}

// stdBridge adapts a liblog.Logger to the *log.Logger interface the
// reactor and config packages expect, so every subsystem's diagnostics
// end up flowing through the same hooks.
type stdBridge struct {
	log liblog.Logger
}

func newStdBridge(log liblog.Logger) *stdlog.Logger {
	return stdlog.New(stdBridge{log: log}, "", 0)
}

func (b stdBridge) Write(p []byte) (int, error) {
	b.log.Info("%s", nil, string(p))
	return len(p), nil
}
