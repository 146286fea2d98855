package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/watchgrid/triggerd/internal/condlang"
	"github.com/watchgrid/triggerd/internal/datastore/entities"
	"github.com/watchgrid/triggerd/internal/dispatch"
	"github.com/watchgrid/triggerd/internal/notification"
	"github.com/watchgrid/triggerd/internal/ongoing"
)

// Mode selects the evaluation path: fast mode runs right after an ingestion
// event and only creates, the periodic full scan also refreshes and expires.
type Mode int

const (
	ModeFast Mode = iota
	ModeFull
)

func (m Mode) String() string {
	if m == ModeFast {
		return "fast"
	}
	return "full"
}

// NotificationType values stored in notification meta.
const (
	NotificationTypePresence = "presence"
)

type handlerKey struct {
	varType condlang.VariableType
	mode    Mode
}

type handlerFunc func(m *CycleManager, ctx context.Context, result bool, value condlang.Result) error

// notificationHandlers is the static dispatch table keyed by variable type
// and mode. Location overflow has an evaluator but no notification path;
// its absence here surfaces as ErrUnsupportedCondition instead of a silent
// skip.
var notificationHandlers = map[handlerKey]handlerFunc{
	{condlang.TypePresence, ModeFast}: (*CycleManager).presenceCreateOnly,
	{condlang.TypePresence, ModeFull}: (*CycleManager).presenceReactivate,
}

// CycleManager runs the notification lifecycle of one trigger.
type CycleManager struct {
	trigger       *entities.Trigger
	parser        *condlang.Parser
	notifications *notification.Manager
	dispatcher    *dispatch.Dispatcher
	activities    ActivityResolver
	threshold     float64
	metrics       *Metrics
	log           *zap.Logger
}

// NewCycleManager builds a cycle manager for one trigger, parsing its
// condition language up front.
func NewCycleManager(
	trigger *entities.Trigger,
	notifications *notification.Manager,
	dispatcher *dispatch.Dispatcher,
	activities ActivityResolver,
	threshold float64,
	metrics *Metrics,
	log *zap.Logger,
) (*CycleManager, error) {
	parser, err := condlang.NewParser(trigger.Meta.ConditionLanguage)
	if err != nil {
		return nil, fmt.Errorf("trigger %d: %w", trigger.ID, err)
	}
	return &CycleManager{
		trigger:       trigger,
		parser:        parser,
		notifications: notifications,
		dispatcher:    dispatcher,
		activities:    activities,
		threshold:     threshold,
		metrics:       metrics,
		log:           log.With(zap.Uint("trigger_id", trigger.ID)),
	}, nil
}

// HandleNotification evaluates the trigger's condition against the packed
// ongoings and runs the notification handler selected by the variable type
// and mode.
func (m *CycleManager) HandleNotification(ctx context.Context, packed []ongoing.PackedOngoing, mode Mode) error {
	result, results, err := m.parser.Evaluate(packed, m.threshold)
	if err != nil {
		return err
	}

	varType, err := m.parser.VariableTypeByIndex(0)
	if err != nil {
		return err
	}
	name, err := m.parser.VariableName(0)
	if err != nil {
		return err
	}

	handler, ok := notificationHandlers[handlerKey{varType: varType, mode: mode}]
	if !ok {
		return fmt.Errorf("%w: no %s-mode handler for %q variables",
			condlang.ErrUnsupportedCondition, mode, varType)
	}

	if m.metrics != nil {
		m.metrics.evaluations.WithLabelValues(mode.String()).Inc()
	}
	return handler(m, ctx, result, results[name])
}

// presenceCreateOnly is the fast-mode path: create notifications for newly
// detected targets and nothing else. Expiry is left to the full scan so the
// ingestion hot path stays short.
func (m *CycleManager) presenceCreateOnly(ctx context.Context, result bool, value condlang.Result) error {
	if !result {
		return nil
	}
	presence, ok := value.(condlang.PresenceResult)
	if !ok {
		return fmt.Errorf("%w: presence handler got %T", ErrDataConsistency, value)
	}

	for i := range presence.Persons {
		match := &presence.Persons[i]

		existing, err := m.notifications.GetActiveByProfile(ctx, m.trigger.ID, match.Person.ProfileID)
		if err != nil {
			return err
		}
		if hasCameraMatch(existing, match.CameraID) {
			continue
		}

		meta, err := m.buildPresenceMeta(ctx, match)
		if err != nil {
			return err
		}
		created, err := m.notifications.Create(ctx, m.trigger, meta)
		if err != nil {
			return err
		}
		if m.metrics != nil {
			m.metrics.created.Inc()
		}
		m.dispatcher.Send(ctx, created, m.trigger)
	}
	return nil
}

// presenceReactivate is the full-scan path: refresh active notifications of
// still-detected targets, then expire everything the lifetime has passed
// by. The refresh matches by profile only, looser than the fast path's
// (profile, camera) pair.
func (m *CycleManager) presenceReactivate(ctx context.Context, result bool, value condlang.Result) error {
	if result {
		presence, ok := value.(condlang.PresenceResult)
		if !ok {
			return fmt.Errorf("%w: presence handler got %T", ErrDataConsistency, value)
		}

		detected := make(map[string]struct{}, len(presence.Persons))
		for i := range presence.Persons {
			detected[presence.Persons[i].Person.ProfileID] = struct{}{}
		}

		active, err := m.notifications.GetActive(ctx, m.trigger.ID)
		if err != nil {
			return err
		}
		var confirmed []entities.Notification
		for i := range active {
			if _, ok := detected[active[i].ProfileID]; ok {
				confirmed = append(confirmed, active[i])
			}
		}
		refreshed, err := m.notifications.RefreshLastModified(ctx, confirmed, time.Now())
		if err != nil {
			return err
		}
		if m.metrics != nil {
			m.metrics.reactivated.Add(float64(refreshed))
		}
	}

	// The sweep runs regardless of the evaluation result; this is how
	// notifications expire once their target is gone for the lifetime.
	deprecated, err := m.notifications.DeprecateWithLifetime(ctx, m.trigger.ID, m.trigger.Lifetime())
	if err != nil {
		return err
	}
	if deprecated > 0 {
		if m.metrics != nil {
			m.metrics.deprecated.Add(float64(deprecated))
		}
		m.log.Debug("deprecated stale notifications", zap.Int64("count", deprecated))
	}
	return nil
}

// buildPresenceMeta assembles notification metadata for one matched person,
// cross-checking the snapshot against the activity's actual linkage. A
// snapshot can race the records it points at; mismatches are invariant
// violations that fail this trigger's tick.
func (m *CycleManager) buildPresenceMeta(ctx context.Context, match *condlang.PersonMatch) (entities.NotificationMeta, error) {
	activity, err := m.activities.GetActivity(ctx, match.Person.ActivityID)
	if err != nil {
		return entities.NotificationMeta{}, fmt.Errorf("activity %s: %w", match.Person.ActivityID, err)
	}
	if activity.Person == nil || activity.Person.Profile == nil {
		return entities.NotificationMeta{}, fmt.Errorf("%w: activity %s has no person profile link",
			ErrDataConsistency, activity.ID)
	}
	if activity.Person.Profile.ID != match.Person.ProfileID {
		return entities.NotificationMeta{}, fmt.Errorf("%w: ongoing profile %s does not match activity profile %s",
			ErrDataConsistency, match.Person.ProfileID, activity.Person.Profile.ID)
	}
	if activity.CameraID != match.CameraID {
		return entities.NotificationMeta{}, fmt.Errorf("%w: ongoing camera %s does not match activity camera %s",
			ErrDataConsistency, match.CameraID, activity.CameraID)
	}

	// Report only the trigger's label targets the profile actually belongs
	// to, not every group the profile is in.
	configured, err := m.parser.ProfileGroupIDs(0)
	if err != nil {
		return entities.NotificationMeta{}, err
	}
	matchedGroups := intersect(configured, activity.Person.Profile.GroupIDs)

	variable, err := m.parser.Variable(0)
	if err != nil {
		return entities.NotificationMeta{}, err
	}
	limit := variable.Limit

	return entities.NotificationMeta{
		Type:                 NotificationTypePresence,
		CameraID:             match.CameraID,
		ProfileID:            match.Person.ProfileID,
		ActivityID:           activity.ID,
		MatchedProfileGroups: matchedGroups,
		FaceBestShotID:       activity.FaceBestShotID,
		BodyBestShotID:       activity.BodyBestShotID,
		Limit:                &limit,
	}, nil
}

func hasCameraMatch(notifications []entities.Notification, cameraID string) bool {
	for i := range notifications {
		if notifications[i].Meta.CameraID == cameraID {
			return true
		}
	}
	return false
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}
