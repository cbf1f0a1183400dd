package worker

import (
	"context"
	"log"

	"agent-market/internal/broker"
	"agent-market/internal/models"
	"agent-market/internal/service"
)

// FulfillmentWorker drives the reconciler from CheckoutCompleted events
// delivered on the webhook path.
type FulfillmentWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	reconciler   *service.Reconciler
}

// NewFulfillmentWorker creates a new fulfillment worker
func NewFulfillmentWorker(consumer *broker.Consumer, reconciler *service.Reconciler) *FulfillmentWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnCheckoutCompleted(func(ctx context.Context, event *models.CheckoutCompletedEvent) error {
		_, err := reconciler.Reconcile(ctx, event.SessionID)
		return err
	})

	return &FulfillmentWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		reconciler:   reconciler,
	}
}

// Start starts the worker
func (w *FulfillmentWorker) Start(ctx context.Context) error {
	log.Println("Starting fulfillment worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *FulfillmentWorker) Stop() error {
	log.Println("Stopping fulfillment worker...")
	return w.consumer.Close()
}
