// Package main (in api-subfolder) provides launch of the whole application except worker
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/ImageUpscaler/internal/config"
	"github.com/UnendingLoop/ImageUpscaler/internal/kafka"
	"github.com/UnendingLoop/ImageUpscaler/internal/mwlogger"
	"github.com/UnendingLoop/ImageUpscaler/internal/repository"
	"github.com/UnendingLoop/ImageUpscaler/internal/service"
	"github.com/UnendingLoop/ImageUpscaler/internal/storage"
	"github.com/UnendingLoop/ImageUpscaler/internal/storage/miniostorage"
	"github.com/UnendingLoop/ImageUpscaler/internal/transport"
	"github.com/UnendingLoop/ImageUpscaler/internal/upscale"
	"github.com/UnendingLoop/ImageUpscaler/internal/upscaler"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
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
	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключитсья к базе
	dbConn, err := repository.ConnectWithRetries(appConfig.PostgresDSN, 5, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	// накатываем миграцию
	if err := repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	// подключиться к хранилищу
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

	// ждем пока кафка раздуплится
	if err := kafka.WaitKafkaReady(ctx, appConfig.KafkaBroker, 5*time.Second); err != nil {
		log.Fatalf("Kafka is not available: %v", err)
	}
	// подключиться к кафке как продюсер
	if err := kafka.InitKafkaTopics(ctx, appConfig.KafkaBroker, 10*time.Second, appConfig.KafkaTopic); err != nil {
		log.Fatalf("Failed to init Kafka topics: %v", err)
	}
	pub := wbfkafka.NewProducer([]string{appConfig.KafkaBroker}, appConfig.KafkaTopic)

	// модель грузим один раз на весь процесс
	upModel, err := upscaler.New(appConfig.Upscaler)
	if err != nil {
		log.Fatalf("Failed to init upscaler: %v", err)
	}
	pipeline := upscale.NewPipeline(upModel)

	// создаем экземпляр сервиса
	var svc UpscaleAPIService = service.NewUpscaleService(repo, pub, strg, pipeline, service.Options{
		SourcePrefix:   appConfig.SourcePrefix,
		ResultPrefix:   appConfig.ResultPrefix,
		MaxUploadBytes: appConfig.MaxUploadBytes,
		MaxPixels:      appConfig.MaxPixels,
	})
	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewUpscaleHandler(svc)
	// сетапим сервер
	engine := ginext.New(appConfig.GinMode)
	engine.MaxMultipartMemory = appConfig.MaxUploadBytes

	engine.GET("/ping", handlers.SimplePinger)
	engine.POST("/upscale", handlers.Upscale)           // синхронный апскейл: до/после + время
	engine.POST("/jobs", handlers.CreateJob)            // создание задачи
	engine.GET("/jobs", handlers.GetAllJobs)            // получение списка задач с пагинацией и сортировкой
	engine.GET("/jobs/:id", handlers.GetJob)            // статус задачи
	engine.GET("/jobs/:id/source", handlers.LoadSource) // загрузка исходника
	engine.GET("/jobs/:id/result", handlers.LoadResult) // загрузка результата
	engine.DELETE("/jobs/:id", handlers.Delete)         // удаление

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           mwlogger.NewMWLogger(engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Server launch
	go func() {
		zlog.Logger.Info().Msgf("Server running on http://localhost%s", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				zlog.Logger.Info().Msg("Server gracefully stopping...")
			default:
				zlog.Logger.Error().Err(err).Msg("Server stopped")
				stop()
			}
		}
	}()

	// запускаем фонового воркера для отслеживания подвисших задач
	go recoveryLoop(ctx, svc)

	// ждем отмены контекста для запуска грейсфул закрытия соединений бд и кафки
	<-ctx.Done()

	shutdown(srv, pub, dbConn, upModel)
	zlog.Logger.Info().Msg("Exiting API...")
}

func recoveryLoop(ctx context.Context, svc UpscaleAPIService) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Error().Interface("panic", r).Msg("Recovery loop crashed")
		}
	}()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.ReviveOrphans(ctx, 20)
		}
	}
}

func shutdown(srv *http.Server, prod *wbfkafka.Producer, dbConn *dbpg.DB, upModel upscaler.Service) {
	zlog.Logger.Info().Msg("Interrupt received!!! Starting shutdown sequence...")

	// даем текущим запросам доработать
	shCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to shutdown HTTP-server")
	}

	// Closing Kafka connection:
	if err := prod.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka-writer")
	}
	zlog.Logger.Info().Msg("Kafka-producer connection closed.")

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
