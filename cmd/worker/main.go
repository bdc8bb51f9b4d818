package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/ImageUpscaler/internal/config"
	"github.com/UnendingLoop/ImageUpscaler/internal/kafka"
	"github.com/UnendingLoop/ImageUpscaler/internal/repository"
	"github.com/UnendingLoop/ImageUpscaler/internal/service"
	"github.com/UnendingLoop/ImageUpscaler/internal/storage"
	"github.com/UnendingLoop/ImageUpscaler/internal/storage/miniostorage"
	"github.com/UnendingLoop/ImageUpscaler/internal/upscale"
	"github.com/UnendingLoop/ImageUpscaler/internal/upscaler"
	"github.com/UnendingLoop/ImageUpscaler/internal/worker"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/dbpg"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig, err := config.Load("./.env")
	if err != nil {
		log.Fatalf("Failed to load config: %s\nExiting app...", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(appConfig.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Listening to interruptions through context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключитсья к базе
	dbConn, err := repository.ConnectWithRetries(appConfig.PostgresDSN, 5, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	// подкллючиться к хранилищу
	strg, err := storage.NewImgStorage(ctx, miniostorage.Options{
		Endpoint: appConfig.MinioEndpoint,
		User:     appConfig.MinioUser,
		Pass:     appConfig.MinioPass,
		Secure:   appConfig.MinioSecure,
		Bucket:   appConfig.Bucket,
	}, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to storage: %v", err)
	}
	// создаем экземпляр репо
	repo := repository.NewPostgresJobRepo(dbConn)

	// модель грузим один раз, воркер переиспользует ее для всех задач
	upModel, err := upscaler.New(appConfig.Upscaler)
	if err != nil {
		log.Fatalf("Failed to init upscaler: %v", err)
	}

	// создаем экземпляр сервиса
	var svc worker.JobWorkerService = service.NewUpscaleService(repo, worker.NoopPublisher{}, strg, upscale.NewPipeline(upModel), service.Options{
		SourcePrefix: appConfig.SourcePrefix,
		ResultPrefix: appConfig.ResultPrefix,
		MaxPixels:    appConfig.MaxPixels,
	})

	// ждем пока кафка раздуплится
	if err := kafka.WaitKafkaReady(ctx, appConfig.KafkaBroker, 5*time.Second); err != nil {
		log.Fatalf("Kafka is not available: %v", err)
	}
	// подключиться к кафке как читатель
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	cons := wbfkafka.NewConsumer([]string{appConfig.KafkaBroker}, appConfig.KafkaTopic, appConfig.KafkaGroupID)

	cons.StartConsuming(ctx, queue, retryStrategy)

	// Собираем воедино все что нужно воркеру и запускаем его
	wrk := worker.NewWorkerInstance(strg, svc, queue, cons, appConfig.ResultPrefix)
	done := make(chan struct{})
	go func() {
		defer close(done)
		wrk.StartWorker(ctx)
	}()

	// Waiting for interruption to stop context to start Graceful shutdown
	<-ctx.Done()
	// текущая задача должна доработать до закрытия соединений
	<-done

	shutdown(cons, dbConn, upModel)
	zlog.Logger.Info().Msg("Exiting worker...")
}

func shutdown(cons *wbfkafka.Consumer, dbConn *dbpg.DB, upModel upscaler.Service) {
	zlog.Logger.Info().Msg("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connection:
	if err := cons.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka-reader")
	}
	zlog.Logger.Info().Msg("Kafka-consumer connection closed.")

	// Releasing model
	if err := upModel.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to release upscaler")
	}

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close DB-conn correctly")
		return
	}
	zlog.Logger.Info().Msg("DBconn closed")
}
