package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"FinCache/internal/usecase"
	pkgch "FinCache/pkg/clickhouse"
	"FinCache/pkg/config"
	xhttp "FinCache/pkg/http"
	pkgkafka "FinCache/pkg/kafka"
	applogger "FinCache/pkg/logger"
	"FinCache/pkg/queue"
)

// App wires the HTTP surface, the refresh workers, and the
// infrastructure clients into one lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server

	chClient  *pkgch.Client
	consumer  *pkgkafka.Consumer
	kh        pkgkafka.MessageHandler
	jobQueue  *queue.RedisQueue
	scheduler *usecase.RefreshScheduler

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// New creates an App with the mandatory dependencies. Optional pieces
// (Kafka consumer, refresh queue) are attached with setters so a
// minimal deployment needs only ClickHouse.
func New(cfg *config.Config, log *applogger.Logger, handler xhttp.Handler, chClient *pkgch.Client) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		httpHandler: handler,
		chClient:    chClient,
	}
}

// SetKafkaConsumer attaches the refresh-topic consumer.
func (a *App) SetKafkaConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) {
	a.consumer = c
	a.kh = h
}

// SetRefresh attaches the Redis-backed refresh queue and its scheduler.
func (a *App) SetRefresh(q *queue.RedisQueue, s *usecase.RefreshScheduler) {
	a.jobQueue = q
	a.scheduler = s
}

// AddCloser registers a resource to be closed on shutdown, in reverse
// registration order.
func (a *App) AddCloser(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.jobQueue != nil {
		if err := a.jobQueue.Start(); err != nil {
			a.log.Error("refresh queue start failed", applogger.Error(err))
			return err
		}
	}

	if a.scheduler != nil {
		go a.scheduler.Start(ctx)
		a.log.Info("refresh scheduler started",
			applogger.Strings("symbols", a.cfg.Refresh.Symbols),
			applogger.Strings("queries", a.cfg.Refresh.Queries))
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(ctx); err != nil {
			a.log.Warn("refresh queue stop error", applogger.Error(err))
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
