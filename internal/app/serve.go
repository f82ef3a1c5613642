package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horse.fit/parley/internal/cli"
	"horse.fit/parley/internal/config"
	"horse.fit/parley/internal/httpapi"
	"horse.fit/parley/internal/speech/googlestt"
)

const cachePruneInterval = time.Hour

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8090, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *port <= 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	openCtx, openCancel := context.WithTimeout(ctx, 10*time.Second)
	svc, err := openServices(openCtx, envLoader, os.Stdout)
	openCancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer svc.Close()

	logger := svc.logger
	if svc.files != nil {
		go func() {
			err := svc.files.Watch(ctx, func() {
				svc.cache.Reset()
			})
			if err != nil {
				logger.Warn().Err(err).Msg("cache file watcher stopped")
			}
		}()
	}
	go pruneCache(ctx, svc)

	srv := httpapi.NewServer(svc.service, nil, speechOptions(svc.cfg), logger, httpapi.Options{
		Host:            *host,
		Port:            *port,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
		AllowedOrigins:  svc.cfg.CORSAllowedOriginsList(),
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", *host).Int("port", *port).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}

func speechOptions(cfg *config.Config) httpapi.SpeechOptions {
	retries := cfg.SpeechMaxRetries
	if retries == 0 {
		retries = -1
	}
	return httpapi.SpeechOptions{
		RecognitionBackend: cfg.NormalizedRecognitionBackend(),
		GoogleSTT: googlestt.Config{
			Encoding:   cfg.GoogleSTTEncoding,
			SampleRate: cfg.GoogleSTTSampleRate,
		},
		IdleTimeout:       cfg.SpeechIdleTimeout,
		MaxRetries:        retries,
		SynthesisWatchdog: cfg.SynthesisWatchdog,
	}
}

func pruneCache(ctx context.Context, svc *services) {
	ticker := time.NewTicker(cachePruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := svc.cache.Prune(ctx); removed > 0 {
				svc.logger.Info().Int("removed", removed).Msg("pruned expired translations")
			}
		}
	}
}
