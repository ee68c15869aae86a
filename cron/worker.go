package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"agrilink/config"
	notificationRepo "agrilink/database/repository/notification"
	slotRepo "agrilink/database/repository/slot"
	"agrilink/models"
	bookingSvc "agrilink/services/booking"
	"agrilink/services/notification"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TypeSweepHolds    = "sweep:holds"
	TypeSweepBookings = "sweep:bookings"
)

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// NewQueueClient returns the asynq client the dispatcher enqueues through.
func NewQueueClient() *asynq.Client {
	return asynq.NewClient(redisOpts())
}

// InitWorker runs the async worker and the periodic sweep scheduler in the
// background. The sweeps are tidiness passes: correctness never depends on
// when they run, so failed runs simply wait for the next tick.
func InitWorker(
	slots slotRepo.SlotRepository,
	coordinator bookingSvc.BookingCoordinator,
	notes notificationRepo.NotificationRepository,
) {
	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TypeNotifySend, handleNotifyTask(notes))
	mux.HandleFunc(TypeSweepHolds, handleSweepHolds(slots))
	mux.HandleFunc(TypeSweepBookings, handleSweepBookings(coordinator))

	// Start async worker with retry logic
	go func() {
		log.Println("[Worker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[Worker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[Worker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()

	scheduler := asynq.NewScheduler(redisOpts(), nil)
	if _, err := scheduler.Register("@every 1m", asynq.NewTask(TypeSweepHolds, nil)); err != nil {
		log.Fatalf("[Worker] failed to register hold sweep: %v", err)
	}
	if _, err := scheduler.Register("@every 1m", asynq.NewTask(TypeSweepBookings, nil)); err != nil {
		log.Fatalf("[Worker] failed to register booking sweep: %v", err)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			log.Printf("[Worker] scheduler stopped: %v", err)
		}
	}()
}

func handleNotifyTask(notes notificationRepo.NotificationRepository) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.NotifyPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[NotifyHandler] Invalid payload: %v", err)
			return err
		}

		record := &models.Notification{
			ID:        uuid.New().String(),
			UserID:    p.UserID,
			Type:      p.Type,
			Data:      p.Data,
			CreatedAt: time.Now().UTC(),
		}
		if err := notes.Insert(ctx, record); err != nil {
			log.Printf("[NotifyHandler] Failed to store notification for %s: %v", p.UserID, err)
			return err
		}
		return nil
	}
}

func handleSweepHolds(slots slotRepo.SlotRepository) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		n, err := slots.SweepExpiredHolds(ctx)
		if err != nil {
			log.Printf("[HoldSweep] sweep failed: %v", err)
			return err
		}
		if n > 0 {
			log.Printf("[HoldSweep] released %d expired holds", n)
		}
		return nil
	}
}

func handleSweepBookings(coordinator bookingSvc.BookingCoordinator) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		n, err := coordinator.ExpireStaleBookings(ctx)
		if err != nil {
			log.Printf("[BookingSweep] pass failed: %v", err)
			return err
		}
		if n > 0 {
			log.Printf("[BookingSweep] cancelled %d abandoned bookings", n)
		}
		return nil
	}
}
