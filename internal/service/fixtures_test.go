package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/config"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/domain/srs"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/service"
	"github.com/phrazzld/pathwise/internal/testutils/memstore"
)

// Content tree used across service tests:
//
//	domain 1
//	├── path 10 (published)
//	│   ├── unit 100
//	│   │   ├── lesson 1000: flashcards 5000, 5001
//	│   │   └── lesson 1001: flashcard 5100
//	│   └── unit 200
//	│       └── lesson 2000: flashcard 6000
//	├── path 20 (published)
//	│   └── unit 300
//	│       └── lesson 3000 (xp reward 80): flashcard 7000
//	└── path 30 (draft)
//	    └── unit 400
//	orphan lesson 9000 (parent 999 missing), flashcard 9100 under it
const (
	domainID      = int64(1)
	pathA         = int64(10)
	pathB         = int64(20)
	pathDraft     = int64(30)
	unitA1        = int64(100)
	unitA2        = int64(200)
	unitB1        = int64(300)
	unitDraft     = int64(400)
	lessonA1a     = int64(1000)
	lessonA1b     = int64(1001)
	lessonA2a     = int64(2000)
	lessonB1a     = int64(3000)
	orphanLesson  = int64(9000)
	cardA1a1      = int64(5000)
	cardA1a2      = int64(5001)
	cardA1b1      = int64(5100)
	cardA2a1      = int64(6000)
	cardB1a1      = int64(7000)
	orphanCard    = int64(9100)
	missingParent = int64(999)
)

var t0 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC) // a Monday

func parent(id int64) *int64 { return &id }

func node(id int64, parentID *int64, kind domain.NodeKind, ordinal int) domain.ContentNode {
	return domain.ContentNode{ID: id, ParentID: parentID, Kind: kind, Ordinal: ordinal, Title: "node", Published: true}
}

func seedTree(ms *memstore.Store) {
	draft := node(pathDraft, parent(domainID), domain.NodeKindPath, 2)
	draft.Published = false
	rewarding := node(lessonB1a, parent(unitB1), domain.NodeKindLesson, 0)
	rewarding.XPReward = 80

	ms.AddNodes(
		node(domainID, nil, domain.NodeKindDomain, 0),
		node(pathA, parent(domainID), domain.NodeKindPath, 0),
		node(pathB, parent(domainID), domain.NodeKindPath, 1),
		draft,
		node(unitA1, parent(pathA), domain.NodeKindUnit, 0),
		node(unitA2, parent(pathA), domain.NodeKindUnit, 1),
		node(unitB1, parent(pathB), domain.NodeKindUnit, 0),
		node(unitDraft, parent(pathDraft), domain.NodeKindUnit, 0),
		node(lessonA1a, parent(unitA1), domain.NodeKindLesson, 0),
		node(lessonA1b, parent(unitA1), domain.NodeKindLesson, 1),
		node(lessonA2a, parent(unitA2), domain.NodeKindLesson, 0),
		rewarding,
		node(cardA1a1, parent(lessonA1a), domain.NodeKindFlashcard, 0),
		node(cardA1a2, parent(lessonA1a), domain.NodeKindFlashcard, 1),
		node(cardA1b1, parent(lessonA1b), domain.NodeKindFlashcard, 0),
		node(cardA2a1, parent(lessonA2a), domain.NodeKindFlashcard, 0),
		node(cardB1a1, parent(lessonB1a), domain.NodeKindFlashcard, 0),
		node(orphanLesson, parent(missingParent), domain.NodeKindLesson, 0),
		node(orphanCard, parent(orphanLesson), domain.NodeKindFlashcard, 0),
	)
}

var (
	heartsCfg   = config.HeartsConfig{Max: 5, RegenInterval: 30 * time.Minute}
	xpCfg       = config.XPConfig{ReviewCorrect: 10, FlashcardCorrect: 5, StrugglingCorrect: 15, LessonComplete: 50}
	sessionsCfg = config.SessionsConfig{DefaultLimit: 20, MaxLimit: 100}
)

type fixture struct {
	ms        *memstore.Store
	logs      *logger.TestLogBuffer
	unlock    service.UnlockService
	hearts    service.HeartsService
	streak    service.StreakService
	scheduler service.SchedulerService
	xp        service.XPService
	sessions  service.ReviewSessionService
	lessons   service.LessonService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ms := memstore.New()
	seedTree(ms)
	log, buf := logger.NewTestLogger()

	f := &fixture{ms: ms, logs: buf}
	f.unlock = service.NewUnlockService(ms, nil, log)
	f.hearts = service.NewHeartsService(ms, heartsCfg, log)
	f.streak = service.NewStreakService(ms, time.UTC, log)
	f.scheduler = service.NewSchedulerService(ms, srs.NewDefaultService(), log)
	f.xp = service.NewXPService(ms, xpCfg, time.UTC, log)
	f.sessions = service.NewReviewSessionService(ms, f.scheduler, f.xp, f.hearts, sessionsCfg, log)
	f.lessons = service.NewLessonService(ms, f.unlock, f.scheduler, f.hearts, f.xp, log)
	return f
}

func member() domain.Identity {
	return domain.Identity{UserID: uuid.New(), Role: domain.RoleMember}
}

func complete(f *fixture, userID uuid.UUID, nodeID int64, kind domain.NodeKind) {
	f.ms.SetProgress(domain.ProgressRecord{
		UserID: userID, NodeID: nodeID, NodeKind: kind, CompletedAt: t0.Add(-time.Hour), Score: 100,
	})
}
