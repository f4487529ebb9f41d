package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/events"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/redact"
	"github.com/phrazzld/pathwise/internal/service"
)

// DefaultListLimit applies to list queries that do not name a limit.
const DefaultListLimit = 20

// Services bundles the engine components the dispatcher routes to.
type Services struct {
	Unlock    service.UnlockService
	Hearts    service.HeartsService
	Streak    service.StreakService
	Scheduler service.SchedulerService
	XP        service.XPService
	Sessions  service.ReviewSessionService
	Lessons   service.LessonService
}

func (s Services) validate() error {
	if s.Unlock == nil || s.Hearts == nil || s.Streak == nil || s.Scheduler == nil ||
		s.XP == nil || s.Sessions == nil || s.Lessons == nil {
		return errors.New("every engine service is required")
	}
	return nil
}

// Clock returns the current time. The dispatcher reads it once per request.
type Clock func() time.Time

// output is what a handler produces on success.
type output struct {
	data any
	tags []domain.Tag
}

type handlerFunc func(ctx context.Context, identity domain.Identity, req Request, now time.Time) (output, error)

// handle adapts a typed handler to the dispatch table.
func handle[R Request](fn func(context.Context, domain.Identity, R, time.Time) (output, error)) handlerFunc {
	return func(ctx context.Context, identity domain.Identity, req Request, now time.Time) (output, error) {
		typed, ok := req.(R)
		if !ok {
			return output{}, fmt.Errorf("request %T cannot be handled as %s", req, req.Kind())
		}
		return fn(ctx, identity, typed, now)
	}
}

// Dispatcher routes requests to the engine services and turns their outcome
// into a Result.
type Dispatcher struct {
	services Services
	emitter  events.EventEmitter
	clock    Clock
	logger   *slog.Logger
	handlers map[Kind]handlerFunc
}

// NewDispatcher creates a Dispatcher. A nil emitter discards invalidation
// events and a nil clock reads time.Now in UTC.
func NewDispatcher(services Services, emitter events.EventEmitter, clock Clock, logger *slog.Logger) (*Dispatcher, error) {
	if err := services.validate(); err != nil {
		return nil, err
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		services: services,
		emitter:  emitter,
		clock:    clock,
		logger:   logger.With(slog.String("component", "dispatcher")),
	}
	d.handlers = map[Kind]handlerFunc{
		KindSubmitAnswer:              handle(d.submitAnswer),
		KindCompleteLesson:            handle(d.completeLesson),
		KindGetHearts:                 handle(d.getHearts),
		KindRefillHearts:              handle(d.refillHearts),
		KindUpdateStreak:              handle(d.updateStreak),
		KindGetXPSummary:              handle(d.getXPSummary),
		KindStartReviewSession:        handle(d.startReviewSession),
		KindSubmitReview:              handle(d.submitReview),
		KindGetDueCards:               handle(d.getDueCards),
		KindGetStrugglingCards:        handle(d.getStrugglingCards),
		KindAddToStrugglingQueue:      handle(d.addToStrugglingQueue),
		KindRemoveFromStrugglingQueue: handle(d.removeFromStrugglingQueue),
		KindIsLessonUnlocked:          handle(d.isUnlocked),
		KindIsUnitUnlocked:            handle(d.isUnlocked),
		KindIsPathUnlocked:            handle(d.isUnlocked),
	}
	return d, nil
}

// Kinds lists every operation the dispatcher can route.
func (d *Dispatcher) Kinds() []Kind {
	kinds := make([]Kind, 0, len(d.handlers))
	for k := range d.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}

// Dispatch runs req on behalf of identity. Errors are classified into the
// Result; tags of a successful mutating command are also emitted as an
// invalidation event.
func (d *Dispatcher) Dispatch(ctx context.Context, identity domain.Identity, req Request) (res Result) {
	log := logger.FromContextOrDefault(ctx, d.logger)

	if req == nil {
		return failure(CodeValidation, "request is required")
	}
	kind := req.Kind()
	log = log.With(slog.String("kind", string(kind)), slog.String("user_id", identity.UserID.String()))

	if err := domain.ValidateIdentity(identity); err != nil {
		log.Warn("request rejected: invalid identity", slog.String("error", err.Error()))
		return failure(CodeForbidden, "invalid identity")
	}

	h, found := d.handlers[kind]
	if !found {
		log.Error("no handler registered for request kind")
		return failure(CodeValidation, fmt.Sprintf("unknown request kind %q", kind))
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", slog.String("panic", redact.String(fmt.Sprint(r))))
			res = failure(CodeFetch, safeMessage(CodeFetch, nil))
		}
	}()

	now := d.clock()
	out, err := h(ctx, identity, req, now)
	if err != nil {
		code := Classify(err)
		attrs := []any{slog.String("code", string(code)), slog.String("error", redact.Error(err))}
		if code == CodeFetch || errors.Is(err, service.ErrContentIntegrity) {
			log.Error("request failed", attrs...)
		} else {
			log.Info("request rejected", attrs...)
		}
		return failure(code, safeMessage(code, err))
	}

	if len(out.tags) > 0 {
		event := events.NewInvalidationEvent(identity.UserID, string(kind), out.tags, now)
		if err := d.emitter.EmitEvent(ctx, event); err != nil {
			log.Warn("failed to emit invalidation event",
				slog.String("event_id", event.ID.String()),
				slog.String("error", redact.Error(err)))
		}
	}
	return ok(out.data, out.tags)
}

func tags(ts ...domain.Tag) []domain.Tag {
	set := domain.TagSet{}
	set.Add(ts...)
	return set.Sorted()
}

func listLimit(limit int) int {
	if limit == 0 {
		return DefaultListLimit
	}
	return limit
}

func (d *Dispatcher) submitAnswer(ctx context.Context, identity domain.Identity, req SubmitAnswer, now time.Time) (output, error) {
	res, err := d.services.Lessons.SubmitAnswer(
		ctx, identity, req.LessonID, req.FlashcardID, req.IsCorrect, req.TimeSpentSeconds, now,
	)
	if err != nil {
		return output{}, err
	}
	return output{data: res, tags: tags(
		domain.ProgressTag(identity.UserID, res.PathID),
		domain.HeartsTag(identity.UserID, res.PathID),
		domain.StatsTag(identity.UserID),
		domain.ReviewsTag(identity.UserID),
	)}, nil
}

func (d *Dispatcher) completeLesson(ctx context.Context, identity domain.Identity, req CompleteLesson, now time.Time) (output, error) {
	res, err := d.services.Lessons.CompleteLesson(ctx, identity, req.LessonID, req.Score, now)
	if err != nil {
		return output{}, err
	}
	return output{data: res, tags: tags(
		domain.ProgressTag(identity.UserID, res.PathID),
		domain.StatsTag(identity.UserID),
	)}, nil
}

func (d *Dispatcher) getHearts(ctx context.Context, identity domain.Identity, req GetHearts, now time.Time) (output, error) {
	state, err := d.services.Hearts.GetState(ctx, identity.UserID, req.PathID, now)
	if err != nil {
		return output{}, err
	}
	return output{data: state}, nil
}

func (d *Dispatcher) refillHearts(ctx context.Context, identity domain.Identity, req RefillHearts, now time.Time) (output, error) {
	state, err := d.services.Hearts.Refill(ctx, identity.UserID, req.PathID, now)
	if err != nil {
		return output{}, err
	}
	return output{data: state, tags: tags(domain.HeartsTag(identity.UserID, req.PathID))}, nil
}

func (d *Dispatcher) updateStreak(ctx context.Context, identity domain.Identity, req UpdateStreak, now time.Time) (output, error) {
	if err := domain.ValidateID("path_id", req.PathID); err != nil {
		return output{}, err
	}
	streak, err := d.services.Streak.CurrentStreak(ctx, identity.UserID, now)
	if err != nil {
		return output{}, err
	}
	return output{data: StreakStatus{Streak: streak}, tags: tags(domain.StatsTag(identity.UserID))}, nil
}

func (d *Dispatcher) getXPSummary(ctx context.Context, identity domain.Identity, _ GetXPSummary, now time.Time) (output, error) {
	summary, err := d.services.XP.Summary(ctx, identity.UserID, now)
	if err != nil {
		return output{}, err
	}
	return output{data: summary}, nil
}

func (d *Dispatcher) startReviewSession(
	ctx context.Context,
	identity domain.Identity,
	req StartReviewSession,
	now time.Time,
) (output, error) {
	start, err := d.services.Sessions.StartSession(ctx, identity.UserID, req.Mode, req.Limit, now)
	if err != nil {
		return output{}, err
	}
	return output{data: start}, nil
}

func (d *Dispatcher) submitReview(ctx context.Context, identity domain.Identity, req SubmitReview, now time.Time) (output, error) {
	res, err := d.services.Sessions.SubmitAnswer(
		ctx, identity.UserID, req.SessionID, req.FlashcardID, req.IsCorrect, req.TimeSpentSeconds, now,
	)
	if err != nil {
		return output{}, err
	}
	if res.Duplicate {
		return output{data: res}, nil
	}
	ts := []domain.Tag{domain.ReviewsTag(identity.UserID), domain.StatsTag(identity.UserID)}
	if res.HeartsDebited {
		ts = append(ts, domain.HeartsTag(identity.UserID, res.PathID))
	}
	return output{data: res, tags: tags(ts...)}, nil
}

func (d *Dispatcher) getDueCards(ctx context.Context, identity domain.Identity, req GetDueCards, now time.Time) (output, error) {
	cards, err := d.services.Scheduler.GetDueCards(ctx, identity.UserID, listLimit(req.Limit), now)
	if err != nil {
		return output{}, err
	}
	return output{data: cards}, nil
}

func (d *Dispatcher) getStrugglingCards(
	ctx context.Context,
	identity domain.Identity,
	req GetStrugglingCards,
	_ time.Time,
) (output, error) {
	entries, err := d.services.Scheduler.GetStrugglingCards(ctx, identity.UserID, listLimit(req.Limit))
	if err != nil {
		return output{}, err
	}
	return output{data: entries}, nil
}

func (d *Dispatcher) addToStrugglingQueue(
	ctx context.Context,
	identity domain.Identity,
	req AddToStrugglingQueue,
	now time.Time,
) (output, error) {
	entry, err := d.services.Scheduler.AddToStrugglingQueue(ctx, identity.UserID, req.FlashcardID, now)
	if err != nil {
		return output{}, err
	}
	return output{data: entry, tags: tags(domain.ReviewsTag(identity.UserID))}, nil
}

func (d *Dispatcher) removeFromStrugglingQueue(
	ctx context.Context,
	identity domain.Identity,
	req RemoveFromStrugglingQueue,
	_ time.Time,
) (output, error) {
	if err := d.services.Scheduler.RemoveFromStrugglingQueue(ctx, identity.UserID, req.FlashcardID); err != nil {
		return output{}, err
	}
	return output{tags: tags(domain.ReviewsTag(identity.UserID))}, nil
}

// isUnlocked answers the unlock queries. A broken hierarchy is a successful
// answer of "locked" flagged as an integrity error.
func (d *Dispatcher) isUnlocked(ctx context.Context, identity domain.Identity, req UnlockRequest, _ time.Time) (output, error) {
	nodeID, kind := req.target()
	unlocked, err := d.services.Unlock.IsKindUnlocked(ctx, identity, nodeID, kind)
	if err != nil {
		if !errors.Is(err, service.ErrContentIntegrity) {
			return output{}, err
		}
		logger.FromContextOrDefault(ctx, d.logger).Error("unlock query hit a content integrity error",
			slog.Int64("node_id", nodeID),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return output{data: UnlockStatus{NodeID: nodeID, IntegrityError: true}}, nil
	}
	return output{data: UnlockStatus{NodeID: nodeID, Unlocked: unlocked}}, nil
}
