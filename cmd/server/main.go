package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/brandon/onthisday/internal/config"
	"github.com/brandon/onthisday/internal/email"
	"github.com/brandon/onthisday/internal/mcp"
	"github.com/brandon/onthisday/internal/memories"
	"github.com/brandon/onthisday/internal/progress"
	"github.com/brandon/onthisday/internal/scheduler"
	"github.com/brandon/onthisday/internal/synology"
	"github.com/brandon/onthisday/internal/tools"
	"github.com/brandon/onthisday/internal/web"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
	stdio       = flag.Bool("stdio", false, "Serve MCP tools over stdin/stdout instead of HTTP")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("onthisday version %s\n", version)
		os.Exit(0)
	}

	// Set up logging; stdout belongs to the protocol in stdio mode
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	if *stdio {
		logger.SetOutput(os.Stderr)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.WithField("version", version).Info("Starting onthisday")

	hub := progress.NewHub(64)

	nas := synology.NewClient(&cfg.NAS, logger)
	nas.SetObserver(hub)

	photos := memories.NewService(nas, nil, logger)

	var notifier *email.Notifier
	if cfg.MailEnabled() {
		transport, err := email.NewSMTPClient(&cfg.Mail, logger)
		if err != nil {
			logger.WithError(err).Fatal("Invalid mail configuration")
		}
		notifier = email.NewNotifier(&cfg.Mail, transport, photos, logger)
		notifier.SetPublisher(hub)
		if cfg.Mail.ArchiveEnabled() {
			notifier.SetArchiver(email.NewIMAPArchiver(&cfg.Mail, logger))
		}
		logger.WithField("smtp", transport.Addr()).Info("Digest delivery enabled")
	} else {
		logger.Info("Mail settings incomplete, digest delivery disabled")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *stdio {
		var digest tools.DigestRunner
		if notifier != nil {
			digest = notifier
		}
		server := mcp.NewServer(tools.NewRegistry(photos, digest, logger), version, logger)
		if err := server.Run(ctx, os.Stdin, os.Stdout); err != nil {
			logger.WithError(err).Error("MCP server error")
		}
		logger.Info("Shutting down onthisday")
		return
	}

	srv, err := web.New(cfg, photos, hub, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create HTTP server")
	}

	var (
		ticks stopper
		jobs  waiter
	)
	if notifier != nil {
		srv.SetDigest(notifier)
		jobs = notifier

		sched := scheduler.New(&cfg.Schedule, notifier, photos.Location(), logger)
		if sched.Start(ctx) {
			ticks = sched
		}
	}

	if err := srv.Run(ctx); err != nil {
		logger.WithError(err).Error("Server error")
		cancel()
	}

	logger.Info("Shutting down onthisday")
	drainDigests(ticks, jobs)
}

type stopper interface {
	Stop()
}

type waiter interface {
	Wait()
}

// drainDigests stops the schedule before waiting on digest jobs, so no tick
// can start a job after the wait has returned. Either argument may be nil.
func drainDigests(ticks stopper, jobs waiter) {
	if ticks != nil {
		ticks.Stop()
	}
	if jobs != nil {
		jobs.Wait()
	}
}
