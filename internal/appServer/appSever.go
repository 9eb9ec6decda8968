package appServer

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Numzn/NUMZSCAN-APP/config"
	"github.com/Numzn/NUMZSCAN-APP/internal/engine"
	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
	"github.com/Numzn/NUMZSCAN-APP/internal/ids"
	"github.com/Numzn/NUMZSCAN-APP/internal/ledger"
	"github.com/Numzn/NUMZSCAN-APP/internal/scanner"
	"github.com/Numzn/NUMZSCAN-APP/internal/service"
	"github.com/Numzn/NUMZSCAN-APP/internal/storage"
	"github.com/Numzn/NUMZSCAN-APP/internal/transport"
	"github.com/Numzn/NUMZSCAN-APP/internal/worker"

	"github.com/Numzn/NUMZSCAN-APP/pkg/redis"
	"github.com/Numzn/NUMZSCAN-APP/pkg/remote"
	"github.com/Numzn/NUMZSCAN-APP/pkg/scheduler"
	"github.com/Numzn/NUMZSCAN-APP/pkg/syncqueue"
)

// queueDrainInterval is how often pending mutations are retried outside of
// full sync cycles.
const queueDrainInterval = 30 * time.Second

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage chain: redis when configured, then the file snapshot, then
	// process memory as the last resort.
	var backends []storage.Backend
	if cfg.Storage.UseRedis {
		redisClient := redis.NewRedisClient(&cfg.Redis)
		defer redisClient.Close()
		backends = append(backends, storage.NewRedisBackend(redisClient, cfg.Storage.Namespace))
	}
	fileBackend, err := storage.NewFileBackend(cfg.Storage.Dir)
	if err != nil {
		logrus.Errorf("file storage unavailable: %v", err)
	} else {
		backends = append(backends, fileBackend)
	}
	backends = append(backends, storage.NewMemoryBackend())
	store := storage.NewTicketStore(backends...)

	// Load the ticket ledger and the persistent device identity.
	ticketLedger := ledger.New(store)
	ticketLedger.Load(ctx)
	deviceID := storage.DeviceID(ctx, store, uuid.NewString)
	logrus.Infof("loaded %d tickets, device %s", ticketLedger.Count(), deviceID)

	// Remote gateway: a missing base url means offline-only operation.
	// Connectivity follows the gateway's view of the last request, so a
	// network drop surfaces as offline instead of endless retries.
	syncEnabled := cfg.Remote.BaseURL != ""
	var gateway remote.Gateway
	online := func() bool { return false }
	if syncEnabled {
		restGateway := remote.NewRESTGateway(remote.Config{
			BaseURL:      cfg.Remote.BaseURL,
			ServiceKey:   cfg.Remote.ServiceKey,
			TicketsTable: cfg.Remote.TicketsTable,
			ScansTable:   cfg.Remote.ScansTable,
			Timeout:      cfg.Remote.Timeout,
		})
		gateway = restGateway
		online = restGateway.Online
		logrus.Info("remote gateway initialized")
	} else {
		gateway = remote.NewNoopGateway()
		logrus.Warn("no remote configured, running offline-only")
	}

	// Sync queue with persisted state.
	policy := syncqueue.RetryPolicy{
		MaxRetries: cfg.Sync.MaxRetries,
		Backoff:    cfg.Sync.RetryBackoff,
	}
	queue := syncqueue.New(remote.NewQueueDispatcher(gateway), storage.NewQueuePersister(store), online, policy)
	queue.Restore(ctx)

	generator := ids.NewGenerator("", nil)
	generator.SetBaseline(ticketLedger.Count())

	syncEngine := engine.New(ticketLedger, queue, gateway, generator, online)

	processor := scanner.NewProcessor(ticketLedger, queue, scanner.Config{
		Debounce:       cfg.Scanner.Debounce,
		AcceptCooldown: cfg.Scanner.AcceptCooldown,
		RejectCooldown: cfg.Scanner.RejectCooldown,
		EventID:        cfg.Remote.EventID,
		DeviceID:       deviceID,
		Location:       cfg.Scanner.Location,
	})

	// Initialize services
	ticketService := service.NewTicketService(ticketLedger, queue, generator, cfg.Remote.EventID, deviceID)
	fundraisingService := service.NewFundraisingService(ctx, store, cfg.Fundraising.TargetAmount)

	// Background sync: the periodic cycle plus a queue drain between cycles.
	if syncEnabled {
		if err := ticketLedger.UpdateSettings(ctx, func(s *entity.Settings) {
			s.AutoSyncEnabled = cfg.Sync.AutoSync
		}); err != nil {
			logrus.Warnf("failed to persist auto-sync setting: %v", err)
		}

		autoSyncWorker := worker.NewAutoSyncWorker(syncEngine, ticketLedger, cfg.Sync.Interval)
		go autoSyncWorker.Start(ctx)

		drainScheduler := scheduler.NewScheduler("queue-drain", queueDrainInterval, func(ctx context.Context) error {
			if queue.Pending() == 0 {
				return nil
			}
			return queue.Flush(ctx)
		})
		go drainScheduler.Start(ctx)
		logrus.Info("sync workers started")
	}

	// Initialize handlers
	ticketHandler := transport.NewTicketHandler(ticketService)
	scanHandler := transport.NewScanHandler(processor, queue)
	syncHandler := transport.NewSyncHandler(syncEngine, queue)
	fundraisingHandler := transport.NewFundraisingHandler(fundraisingService)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(ticketHandler, scanHandler, syncHandler, fundraisingHandler)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}
