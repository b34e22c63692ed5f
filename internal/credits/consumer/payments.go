package consumer

import (
	"context"
	"slotbook/internal/credits/service"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/kafka"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
)

// PaymentsHandler applies payment provider events from the payments topic.
// Malformed or rejected events go straight to the DLQ; store failures are
// retried by the consumer.
func PaymentsHandler(credits service.CreditService, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event model.PaymentEvent
		if err := msg.DecodeValue(&event); err != nil {
			return err
		}
		if event.Type == "" {
			event.Type = msg.GetEventType()
		}

		err := credits.ApplyPayment(ctx, &event)
		if err == nil {
			return nil
		}

		if apperrors.AsAppError(err).StatusCode() < 500 {
			log.Warn("Rejected payment event",
				"event_id", msg.GetEventID(),
				"tenant_id", event.TenantID,
				"payment_ref", event.PaymentRef,
				"error", err,
			)
			return kafka.NewPermanentError("payment event rejected", err)
		}
		return kafka.NewTransientError("apply payment event", err)
	}
}
