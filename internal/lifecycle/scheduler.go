package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/watchgrid/triggerd/internal/datastore/repository"
	"github.com/watchgrid/triggerd/internal/dispatch"
	"github.com/watchgrid/triggerd/internal/notification"
	"github.com/watchgrid/triggerd/internal/ongoing"
)

// Scheduler drives the evaluation passes: the periodic full scan across all
// workspaces and the fast-mode pass for one workspace right after an
// ingestion event.
type Scheduler struct {
	triggers      repository.TriggerRepository
	notifications *notification.Manager
	dispatcher    *dispatch.Dispatcher
	activities    ActivityResolver
	snapshots     *ongoing.SnapshotCache
	thresholds    ThresholdProvider
	metrics       *Metrics
	log           *zap.Logger

	scanInterval time.Duration
}

// NewScheduler creates a scheduler over the engine's collaborators.
func NewScheduler(
	triggers repository.TriggerRepository,
	notifications *notification.Manager,
	dispatcher *dispatch.Dispatcher,
	activities ActivityResolver,
	snapshots *ongoing.SnapshotCache,
	thresholds ThresholdProvider,
	scanInterval time.Duration,
	metrics *Metrics,
	log *zap.Logger,
) *Scheduler {
	return &Scheduler{
		triggers:      triggers,
		notifications: notifications,
		dispatcher:    dispatcher,
		activities:    activities,
		snapshots:     snapshots,
		thresholds:    thresholds,
		metrics:       metrics,
		log:           log,
		scanInterval:  scanInterval,
	}
}

// Run executes full scans at the configured interval until the context is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.FullScan(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// FullScan evaluates every active trigger of every workspace in full-scan
// mode.
func (s *Scheduler) FullScan(ctx context.Context) {
	workspaceIDs, err := s.triggers.ListWorkspaceIDs(ctx)
	if err != nil {
		s.log.Error("failed to list workspaces for full scan", zap.Error(err))
		return
	}
	for _, workspaceID := range workspaceIDs {
		s.ScanWorkspace(ctx, workspaceID, ModeFull)
	}
}

// FastScan evaluates one workspace's triggers in fast mode. Called right
// after a detection ingestion event to minimize notification latency.
func (s *Scheduler) FastScan(ctx context.Context, workspaceID string) {
	s.ScanWorkspace(ctx, workspaceID, ModeFast)
}

// ScanWorkspace packs the workspace's cached ongoings once and runs every
// active trigger against them. A failing trigger is logged and skipped; it
// never aborts the rest of the batch.
func (s *Scheduler) ScanWorkspace(ctx context.Context, workspaceID string, mode Mode) {
	triggers, err := s.triggers.ListActiveTriggers(ctx, workspaceID)
	if err != nil {
		s.log.Error("failed to list active triggers",
			zap.String("workspace_id", workspaceID),
			zap.Error(err))
		return
	}
	if len(triggers) == 0 {
		return
	}

	// Cache miss means no detections this tick, not an error.
	packed := ongoing.Pack(s.snapshots.Get(workspaceID))
	threshold := s.thresholds.NotificationScoreThreshold(workspaceID)

	for i := range triggers {
		trigger := &triggers[i]
		manager, err := NewCycleManager(trigger, s.notifications, s.dispatcher, s.activities, threshold, s.metrics, s.log)
		if err != nil {
			s.recordFailure(trigger.ID, workspaceID, err)
			continue
		}
		if err := manager.HandleNotification(ctx, packed, mode); err != nil {
			s.recordFailure(trigger.ID, workspaceID, err)
		}
	}
}

func (s *Scheduler) recordFailure(triggerID uint, workspaceID string, err error) {
	if s.metrics != nil {
		s.metrics.failures.Inc()
	}
	s.log.Error("trigger evaluation failed",
		zap.Uint("trigger_id", triggerID),
		zap.String("workspace_id", workspaceID),
		zap.Error(err))
}
