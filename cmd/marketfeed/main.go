package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/drewalbert7/Keepitbased-sub001/internal/api"
	"github.com/drewalbert7/Keepitbased-sub001/internal/backfill"
	"github.com/drewalbert7/Keepitbased-sub001/internal/feed"
	"github.com/drewalbert7/Keepitbased-sub001/internal/model/enum"
	"github.com/drewalbert7/Keepitbased-sub001/internal/ops"
	"github.com/gin-gonic/gin"
	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

// backfillPacing keeps history requests under the public REST limit.
const backfillPacing = time.Second

func main() {
	if err := run(); err != nil {
		logs.Errorf("marketfeed, err: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to JSON config")
	listen := flag.String("listen", "", "HTTP listen address, overrides the config")
	profilerAddr := flag.String("pyroscope", "", "Pyroscope server address, overrides the config")
	flag.Parse()

	loaded := ops.Default()
	if len(*configPath) != 0 {
		var err error
		if loaded, err = ops.Load(*configPath); err != nil {
			return err
		}
	}
	if len(*listen) != 0 {
		loaded.Listen = *listen
	}
	if len(*profilerAddr) != 0 {
		loaded.Profiler.Address = *profilerAddr
	}

	if len(loaded.Profiler.Address) != 0 {
		stop, err := startProfiler(loaded.Profiler)
		if err != nil {
			return err
		}
		defer stop()
	}

	loaded.Feed.History = backfill.New(loaded.RestEndpoint, 0)
	client, err := feed.New(loaded.Feed, nil)
	if err != nil {
		return err
	}
	client.SetHandlers(feed.Handlers{
		OnConnect: func() { logs.Info("market feed connected") },
		OnDisconnect: func(err error) {
			if err != nil {
				logs.Warnf("market feed disconnected, err: %+v", err)
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		logs.Warnf("first connect failed, retrying in background, err: %+v", err)
	}
	defer client.Close()

	if err := subscribe(client, loaded); err != nil {
		return err
	}

	if loaded.Backfill {
		go runBackfill(ctx, client, loaded.Pairs)
	}

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              loaded.Listen,
		Handler:           api.NewHandler(client).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logs.Infof("status server listening on %s", loaded.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Errorf("status server, err: %+v", err)
		}
	}()

	<-sys.Shutdown()
	logs.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logs.Warnf("shutdown status server, err: %+v", err)
	}

	return nil
}

func subscribe(client *feed.Client, loaded ops.Loaded) error {
	for _, channel := range loaded.Channels {
		if channel != enum.ChannelOHLC {
			if err := client.Subscribe(loaded.Pairs, channel, feed.SubscribeOptions{}); err != nil {
				return err
			}
			continue
		}
		for _, interval := range client.Intervals() {
			if err := client.Subscribe(loaded.Pairs, channel, feed.SubscribeOptions{Interval: interval}); err != nil {
				return err
			}
		}
	}
	return nil
}

func runBackfill(ctx context.Context, client *feed.Client, pairs []string) {
	for _, pair := range pairs {
		for _, interval := range client.Intervals() {
			if _, err := client.Backfill(ctx, pair, interval); err != nil {
				logs.Warnf("backfill %s %s, err: %+v", pair, interval.Label(), err)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(backfillPacing):
			}
		}
	}
}

func startProfiler(cfg ops.ProfilerConfig) (func(), error) {
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.AppName,
		ServerAddress:   cfg.Address,
		Logger:          profilerLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = profiler.Stop() }, nil
}

type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...any)  { logs.Debugf(format, args...) }
func (profilerLogger) Debugf(format string, args ...any) { logs.Debugf(format, args...) }
func (profilerLogger) Errorf(format string, args ...any) { logs.Errorf(format, args...) }
