package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/booklend/lending-service/config"
	"github.com/booklend/lending-service/internal/handler"
	"github.com/booklend/lending-service/internal/repository"
	"github.com/booklend/lending-service/internal/server"
	"github.com/booklend/lending-service/internal/service"
	"github.com/booklend/lending-service/migrations"
	"github.com/booklend/lending-service/pkg/auth"
	"github.com/booklend/lending-service/pkg/kafka"
	"github.com/booklend/lending-service/pkg/logger"
	"github.com/booklend/lending-service/pkg/postgres"
	"go.uber.org/zap"
)

func Run(cfg config.Config) error {
	log := logger.NewLogger(cfg.Log, "library")

	if cfg.Auth.Key != "" {
		auth.JWTKey = []byte(cfg.Auth.Key)
	}

	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return fmt.Errorf("db init %v", err)
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		return fmt.Errorf("repo init %v", err)
	}

	var queue service.Enqueuer
	if len(cfg.Kafka.Addrs) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return fmt.Errorf("kafka producer %v", err)
		}
		defer producer.Close() //nolint:errcheck
		queue = service.NewEnqueuer(producer)
	}

	svc := service.NewService(repo, queue, cfg, log)
	h := handler.New(svc, log)

	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.Error("srv.Stop", zap.Error(err))
	}
	db.Close()
	log.Info("Graceful shutdown finished")
	return nil
}
