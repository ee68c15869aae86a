package notification

import (
	"context"
	"encoding/json"

	"agrilink/models"
	"agrilink/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AsynqNotificationService queues notification tasks for the background
// worker. Enqueue failures are logged and swallowed; delivery is best-effort
// by contract.
type AsynqNotificationService struct {
	client *asynq.Client
}

func NewAsynqNotificationService(client *asynq.Client) *AsynqNotificationService {
	return &AsynqNotificationService{client: client}
}

func (s *AsynqNotificationService) Notify(ctx context.Context, userID, eventType string, data map[string]string) {
	payload, err := json.Marshal(models.NotifyPayload{
		UserID: userID,
		Type:   eventType,
		Data:   data,
	})
	if err != nil {
		utils.GetLogger().Warn("notification payload marshal failed", zap.Error(err))
		return
	}

	task := asynq.NewTask(TypeNotifySend, payload)
	if _, err := s.client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		utils.GetLogger().Warn("notification enqueue failed",
			zap.String("user", userID),
			zap.String("event", eventType),
			zap.Error(err))
	}
}

var _ NotificationService = (*AsynqNotificationService)(nil)
