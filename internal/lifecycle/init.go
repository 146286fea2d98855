package lifecycle

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/watchgrid/triggerd/internal/datastore/entities"
	"github.com/watchgrid/triggerd/internal/datastore/repository"
	"github.com/watchgrid/triggerd/internal/dispatch"
	"github.com/watchgrid/triggerd/internal/notification"
	"github.com/watchgrid/triggerd/internal/ongoing"
)

// recorderAdapter lazily resolves the notification manager to record
// delivery statuses. This avoids hard initialization ordering between the
// dispatch and notification subsystems.
type recorderAdapter struct{}

func (a *recorderAdapter) RecordSendingStatus(ctx context.Context, notificationID, endpointID uint, status entities.SendingStatus) error {
	manager := notification.GetService()
	if manager == nil {
		return nil // notification manager not yet initialized
	}
	return manager.UpdateSendingStatus(ctx, notificationID, endpointID, status)
}

// Options configures Initialize.
type Options struct {
	ScoreThreshold float64
	ScanInterval   time.Duration
	SnapshotTTL    time.Duration
	HTTPClient     *http.Client
	Registry       prometheus.Registerer
}

// Initialize wires the engine: repositories, notification manager, endpoint
// dispatch and the scheduler. The returned hub is for the web layer to
// register interface connections; the cache is the ingestion side's sink
// for raw ongoings.
func Initialize(
	triggers repository.TriggerRepository,
	notifications repository.NotificationRepository,
	activities ActivityResolver,
	opts Options,
	log *zap.Logger,
) (*Scheduler, *dispatch.Hub, *ongoing.SnapshotCache) {
	manager := notification.NewManager(notifications, log)
	notification.Initialize(manager)

	hub := dispatch.NewHub()
	router := dispatch.NewServiceRouter(
		dispatch.NewWebhookSender(opts.HTTPClient),
		dispatch.NewShoutrrrSender(),
		hub,
	)
	dispatcher := dispatch.NewDispatcher(router, &recorderAdapter{}, log)

	cache := ongoing.NewSnapshotCache(opts.SnapshotTTL)
	metrics := NewMetrics(opts.Registry)

	scheduler := NewScheduler(
		triggers,
		manager,
		dispatcher,
		activities,
		cache,
		FixedThreshold(opts.ScoreThreshold),
		opts.ScanInterval,
		metrics,
		log,
	)

	log.Info("notification lifecycle engine initialized",
		zap.Duration("scan_interval", opts.ScanInterval),
		zap.Float64("score_threshold", opts.ScoreThreshold))

	return scheduler, hub, cache
}
