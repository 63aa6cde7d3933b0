package cron

import (
	"time"

	"aiacard/config"
	"aiacard/services/card"
	"aiacard/services/email"
	"aiacard/services/tasks"
	"aiacard/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	defaultReconcileCron  = "@every 10m"
	defaultReconcileAge   = 5 * time.Minute
	defaultReconcileBatch = 50
	defaultConcurrency    = 10
)

// Worker owns the background queue: the asynq server handling card retries
// and queued mail, the scheduler firing reconciliation, and the client used to
// enqueue.
type Worker struct {
	Client    *asynq.Client
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	cron      string
}

// RedisOpt returns the queue connection settings.
func RedisOpt(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
}

// NewWorker builds the queue client, server and scheduler. Handlers are
// registered with Register before Start.
func NewWorker(cfg config.Config) *Worker {
	opt := RedisOpt(cfg)

	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	cronSpec := cfg.ReconcileCron
	if cronSpec == "" {
		cronSpec = defaultReconcileCron
	}

	logger := utils.GetLogger().Sugar()
	return &Worker{
		Client: asynq.NewClient(opt),
		server: asynq.NewServer(opt, asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: logger,
		}),
		scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{Logger: logger}),
		mux:       asynq.NewServeMux(),
		cron:      cronSpec,
	}
}

// Register wires the task handlers. mailer may be nil when mail is not queued.
func (w *Worker) Register(cardSvc *card.Service, mailer email.Mailer, cfg config.Config) {
	olderThan := cfg.ReconcileMinAge
	if olderThan <= 0 {
		olderThan = defaultReconcileAge
	}
	batch := cfg.ReconcileBatch
	if batch <= 0 {
		batch = defaultReconcileBatch
	}

	w.mux.HandleFunc(tasks.TypeCardOpen, card.HandleCardOpenTask(cardSvc))
	w.mux.HandleFunc(tasks.TypeCardReconcile, card.HandleReconcileTask(cardSvc, olderThan, batch))
	if mailer != nil {
		w.mux.HandleFunc(tasks.TypeEmailSend, email.HandleEmailTask(mailer))
	}
}

// Start runs the server and the scheduler in the background, retrying the
// server start with backoff.
func (w *Worker) Start() error {
	if _, err := w.scheduler.Register(w.cron, tasks.NewCardReconcileTask()); err != nil {
		return err
	}

	go func() {
		log := utils.GetLogger()
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.server.Start(w.mux)
			if err == nil {
				log.Info("worker: started", zap.String("reconcile", w.cron))
				break
			}
			log.Error("worker: failed to start", zap.Int("attempt", attempts), zap.Error(err))
			if attempts == maxAttempts {
				log.Error("worker: giving up, background retries disabled")
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}

		if err := w.scheduler.Start(); err != nil {
			log.Error("worker: failed to start scheduler", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops the scheduler, drains the server and closes the client.
func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
	if err := w.Client.Close(); err != nil {
		utils.GetLogger().Warn("worker: closing queue client", zap.Error(err))
	}
}
