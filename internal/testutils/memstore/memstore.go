// Package memstore provides an in-memory store.Transactor for service and
// transport tests that should not depend on PostgreSQL.
//
// Transactions are serialized and work on a private copy of the data that
// is swapped in on commit, so a failed unit of work leaves no trace.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/store"
)

type userNodeKey struct {
	userID uuid.UUID
	nodeID int64
}

type submissionKey struct {
	sessionID   uuid.UUID
	flashcardID int64
}

type state struct {
	nodes       map[int64]domain.ContentNode
	progress    map[userNodeKey]domain.ProgressRecord
	hearts      map[userNodeKey]domain.HeartsState
	reviews     []domain.ReviewRecord
	struggling  map[userNodeKey]domain.StrugglingEntry
	xp          []domain.XPTransaction
	sessions    map[uuid.UUID]domain.ReviewSession
	submissions map[submissionKey]domain.ReviewSubmission
	nextID      int64
}

func newState() *state {
	return &state{
		nodes:       make(map[int64]domain.ContentNode),
		progress:    make(map[userNodeKey]domain.ProgressRecord),
		hearts:      make(map[userNodeKey]domain.HeartsState),
		struggling:  make(map[userNodeKey]domain.StrugglingEntry),
		sessions:    make(map[uuid.UUID]domain.ReviewSession),
		submissions: make(map[submissionKey]domain.ReviewSubmission),
	}
}

func (s *state) clone() *state {
	c := &state{
		nodes:       make(map[int64]domain.ContentNode, len(s.nodes)),
		progress:    make(map[userNodeKey]domain.ProgressRecord, len(s.progress)),
		hearts:      make(map[userNodeKey]domain.HeartsState, len(s.hearts)),
		reviews:     append([]domain.ReviewRecord(nil), s.reviews...),
		struggling:  make(map[userNodeKey]domain.StrugglingEntry, len(s.struggling)),
		xp:          append([]domain.XPTransaction(nil), s.xp...),
		sessions:    make(map[uuid.UUID]domain.ReviewSession, len(s.sessions)),
		submissions: make(map[submissionKey]domain.ReviewSubmission, len(s.submissions)),
		nextID:      s.nextID,
	}
	for k, v := range s.nodes {
		c.nodes[k] = v
	}
	for k, v := range s.progress {
		c.progress[k] = v
	}
	for k, v := range s.hearts {
		c.hearts[k] = v
	}
	for k, v := range s.struggling {
		c.struggling[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.submissions {
		c.submissions[k] = v
	}
	return c
}

func (s *state) newID() int64 {
	s.nextID++
	return s.nextID
}

// Store is an in-memory implementation of store.Transactor.
type Store struct {
	txMu sync.Mutex // serializes transactions, standing in for row locks

	mu       sync.Mutex
	data     *state
	failures map[string]error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		data:     newState(),
		failures: make(map[string]error),
	}
}

// Ensure Store implements store.Transactor interface
var _ store.Transactor = (*Store)(nil)

// Stores implements store.Transactor.Stores
func (s *Store) Stores() store.Stores {
	return newView(s, &s.mu, func() *state { return s.data })
}

// RunInTx implements store.Transactor.RunInTx
func (s *Store) RunInTx(ctx context.Context, fn store.StoresFn) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	work := s.data.clone()
	s.mu.Unlock()

	var txMu sync.Mutex
	if err := fn(ctx, newView(s, &txMu, func() *state { return work })); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = work
	s.mu.Unlock()
	return nil
}

// FailOn makes every later call of the named operation return err, e.g.
// FailOn("xp.append", errors.New("connection reset")). A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[op]
}

// AddNodes seeds the content hierarchy.
func (s *Store) AddNodes(nodes ...domain.ContentNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.data.nodes[n.ID] = n
	}
}

// AddReview seeds a review record, assigning its ID.
func (s *Store) AddReview(r domain.ReviewRecord) domain.ReviewRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.data.newID()
	s.data.reviews = append(s.data.reviews, r)
	return r
}

// SetHearts seeds the hearts state of a user on a path.
func (s *Store) SetHearts(h domain.HeartsState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.hearts[userNodeKey{h.UserID, h.PathID}] = h
}

// Hearts returns the stored hearts state without applying regeneration.
func (s *Store) Hearts(userID uuid.UUID, pathID int64) (domain.HeartsState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.data.hearts[userNodeKey{userID, pathID}]
	return h, ok
}

// Reviews returns the review history of a user in insertion order.
func (s *Store) Reviews(userID uuid.UUID) []domain.ReviewRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ReviewRecord
	for _, r := range s.data.reviews {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// XPTransactions returns the XP ledger of a user in insertion order.
func (s *Store) XPTransactions(userID uuid.UUID) []domain.XPTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.XPTransaction
	for _, t := range s.data.xp {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

// Progress returns the completion record of a node, if any.
func (s *Store) Progress(userID uuid.UUID, nodeID int64) (domain.ProgressRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.progress[userNodeKey{userID, nodeID}]
	return p, ok
}

// SetProgress seeds a completion record.
func (s *Store) SetProgress(p domain.ProgressRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.progress[userNodeKey{p.UserID, p.NodeID}] = p
}

// view binds the store interfaces to one state, either the committed one or
// the working copy of a transaction.
type view struct {
	owner *Store
	mu    *sync.Mutex
	st    func() *state
}

func newView(owner *Store, mu *sync.Mutex, st func() *state) store.Stores {
	v := &view{owner: owner, mu: mu, st: st}
	return store.Stores{
		Content:    contentStore{v},
		Progress:   progressStore{v},
		Hearts:     heartsStore{v},
		Reviews:    reviewStore{v},
		Struggling: strugglingStore{v},
		Activity:   activityStore{v},
		XP:         xpStore{v},
		Sessions:   sessionStore{v},
	}
}

// do runs fn under the view lock unless a failure is injected for op.
func (v *view) do(op string, fn func(st *state) error) error {
	if err := v.owner.failure(op); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return fn(v.st())
}

type contentStore struct{ v *view }

func (c contentStore) GetNode(_ context.Context, id int64) (*domain.ContentNode, error) {
	var out *domain.ContentNode
	err := c.v.do("content.get_node", func(st *state) error {
		n, ok := st.nodes[id]
		if !ok {
			return store.ErrContentNotFound
		}
		out = &n
		return nil
	})
	return out, err
}

func (c contentStore) GetChild(_ context.Context, parentID int64, ordinal int) (*domain.ContentNode, error) {
	var out *domain.ContentNode
	err := c.v.do("content.get_child", func(st *state) error {
		for _, n := range st.nodes {
			if n.ParentID != nil && *n.ParentID == parentID && n.Ordinal == ordinal {
				n := n
				out = &n
				return nil
			}
		}
		return store.ErrContentNotFound
	})
	return out, err
}

func (c contentStore) ListChildren(_ context.Context, parentID int64) ([]*domain.ContentNode, error) {
	var out []*domain.ContentNode
	err := c.v.do("content.list_children", func(st *state) error {
		for _, n := range st.nodes {
			if n.ParentID != nil && *n.ParentID == parentID {
				n := n
				out = append(out, &n)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
		return nil
	})
	return out, err
}

type progressStore struct{ v *view }

func (p progressStore) Upsert(
	_ context.Context,
	record *domain.ProgressRecord,
) (*domain.ProgressRecord, bool, error) {
	if err := record.Validate(); err != nil {
		return nil, false, store.NewStoreError("progress_record", "upsert", "invalid record", store.ErrInvalidEntity)
	}
	var (
		out     domain.ProgressRecord
		created bool
	)
	err := p.v.do("progress.upsert", func(st *state) error {
		key := userNodeKey{record.UserID, record.NodeID}
		existing, ok := st.progress[key]
		if !ok {
			out = *record
			created = true
		} else {
			out = existing
			if record.Score > out.Score {
				out.Score = record.Score
			}
		}
		st.progress[key] = out
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, created, nil
}

func (p progressStore) Get(_ context.Context, userID uuid.UUID, nodeID int64) (*domain.ProgressRecord, error) {
	var out *domain.ProgressRecord
	err := p.v.do("progress.get", func(st *state) error {
		rec, ok := st.progress[userNodeKey{userID, nodeID}]
		if !ok {
			return store.ErrProgressNotFound
		}
		out = &rec
		return nil
	})
	return out, err
}

func (p progressStore) CountCompletedChildren(_ context.Context, userID uuid.UUID, parentID int64) (int, error) {
	var n int
	err := p.v.do("progress.count_children", func(st *state) error {
		for key := range st.progress {
			if key.userID != userID {
				continue
			}
			node, ok := st.nodes[key.nodeID]
			if ok && node.ParentID != nil && *node.ParentID == parentID {
				n++
			}
		}
		return nil
	})
	return n, err
}

type heartsStore struct{ v *view }

func (h heartsStore) GetForUpdate(
	_ context.Context,
	userID uuid.UUID,
	pathID int64,
	maxHearts int,
	now time.Time,
) (*domain.HeartsState, error) {
	var out domain.HeartsState
	err := h.v.do("hearts.get_for_update", func(st *state) error {
		key := userNodeKey{userID, pathID}
		cur, ok := st.hearts[key]
		if !ok {
			cur = *domain.NewHeartsState(userID, pathID, maxHearts, now)
			st.hearts[key] = cur
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (h heartsStore) Update(_ context.Context, s *domain.HeartsState) error {
	return h.v.do("hearts.update", func(st *state) error {
		key := userNodeKey{s.UserID, s.PathID}
		cur, ok := st.hearts[key]
		if !ok || cur.Version != s.Version {
			return store.ErrConflict
		}
		next := *s
		next.Version++
		st.hearts[key] = next
		s.Version = next.Version
		return nil
	})
}

type reviewStore struct{ v *view }

func (r reviewStore) Append(_ context.Context, record *domain.ReviewRecord) error {
	if err := record.Validate(); err != nil {
		return store.NewStoreError("review_record", "append", "invalid record", store.ErrInvalidEntity)
	}
	return r.v.do("reviews.append", func(st *state) error {
		record.ID = st.newID()
		st.reviews = append(st.reviews, *record)
		return nil
	})
}

func (r reviewStore) GetByID(_ context.Context, id int64) (*domain.ReviewRecord, error) {
	var out *domain.ReviewRecord
	err := r.v.do("reviews.get_by_id", func(st *state) error {
		for _, rec := range st.reviews {
			if rec.ID == id {
				rec := rec
				out = &rec
				return nil
			}
		}
		return store.ErrReviewNotFound
	})
	return out, err
}

func (r reviewStore) Latest(_ context.Context, userID uuid.UUID, flashcardID int64) (*domain.ReviewRecord, error) {
	var out *domain.ReviewRecord
	err := r.v.do("reviews.latest", func(st *state) error {
		latest := latestByCard(st.reviews, userID)
		rec, ok := latest[flashcardID]
		if !ok {
			return store.ErrReviewNotFound
		}
		out = &rec
		return nil
	})
	return out, err
}

func (r reviewStore) Due(
	_ context.Context,
	userID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.ReviewRecord, error) {
	var out []*domain.ReviewRecord
	err := r.v.do("reviews.due", func(st *state) error {
		for _, rec := range latestByCard(st.reviews, userID) {
			if rec.IsDue(now) {
				rec := rec
				out = append(out, &rec)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].NextReviewDate.Equal(out[j].NextReviewDate) {
				return out[i].NextReviewDate.Before(out[j].NextReviewDate)
			}
			return out[i].FlashcardID < out[j].FlashcardID
		})
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r reviewStore) CountCorrectSince(
	_ context.Context,
	userID uuid.UUID,
	flashcardID int64,
	since time.Time,
) (int, error) {
	var n int
	err := r.v.do("reviews.count_correct", func(st *state) error {
		for _, rec := range st.reviews {
			if rec.UserID == userID && rec.FlashcardID == flashcardID &&
				rec.IsCorrect && rec.ReviewDate.After(since) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func latestByCard(reviews []domain.ReviewRecord, userID uuid.UUID) map[int64]domain.ReviewRecord {
	latest := make(map[int64]domain.ReviewRecord)
	for _, rec := range reviews {
		if rec.UserID != userID {
			continue
		}
		cur, ok := latest[rec.FlashcardID]
		if !ok || rec.ReviewDate.After(cur.ReviewDate) ||
			(rec.ReviewDate.Equal(cur.ReviewDate) && rec.ID > cur.ID) {
			latest[rec.FlashcardID] = rec
		}
	}
	return latest
}

type strugglingStore struct{ v *view }

func (s strugglingStore) RecordFailure(
	_ context.Context,
	userID uuid.UUID,
	flashcardID int64,
	now time.Time,
) (*domain.StrugglingEntry, error) {
	var out domain.StrugglingEntry
	err := s.v.do("struggling.record_failure", func(st *state) error {
		key := userNodeKey{userID, flashcardID}
		e, ok := st.struggling[key]
		if !ok {
			e = domain.StrugglingEntry{UserID: userID, FlashcardID: flashcardID, AddedAt: now}
		}
		e.TimesFailed++
		e.LastFailedAt = now
		st.struggling[key] = e
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s strugglingStore) Add(
	_ context.Context,
	userID uuid.UUID,
	flashcardID int64,
	now time.Time,
) (*domain.StrugglingEntry, error) {
	var out domain.StrugglingEntry
	err := s.v.do("struggling.add", func(st *state) error {
		key := userNodeKey{userID, flashcardID}
		e, ok := st.struggling[key]
		if !ok {
			e = domain.StrugglingEntry{
				UserID:       userID,
				FlashcardID:  flashcardID,
				LastFailedAt: now,
				AddedAt:      now,
			}
			st.struggling[key] = e
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s strugglingStore) Get(_ context.Context, userID uuid.UUID, flashcardID int64) (*domain.StrugglingEntry, error) {
	return s.get("struggling.get", userID, flashcardID)
}

// GetForUpdate needs no lock of its own: RunInTx already serialises transactions.
func (s strugglingStore) GetForUpdate(_ context.Context, userID uuid.UUID, flashcardID int64) (*domain.StrugglingEntry, error) {
	return s.get("struggling.get_for_update", userID, flashcardID)
}

func (s strugglingStore) get(op string, userID uuid.UUID, flashcardID int64) (*domain.StrugglingEntry, error) {
	var out *domain.StrugglingEntry
	err := s.v.do(op, func(st *state) error {
		e, ok := st.struggling[userNodeKey{userID, flashcardID}]
		if !ok {
			return store.ErrStrugglingNotFound
		}
		out = &e
		return nil
	})
	return out, err
}

func (s strugglingStore) Remove(_ context.Context, userID uuid.UUID, flashcardID int64) error {
	return s.v.do("struggling.remove", func(st *state) error {
		key := userNodeKey{userID, flashcardID}
		if _, ok := st.struggling[key]; !ok {
			return store.ErrStrugglingNotFound
		}
		delete(st.struggling, key)
		return nil
	})
}

func (s strugglingStore) List(_ context.Context, userID uuid.UUID, limit int) ([]*domain.StrugglingEntry, error) {
	var out []*domain.StrugglingEntry
	err := s.v.do("struggling.list", func(st *state) error {
		for key, e := range st.struggling {
			if key.userID == userID {
				e := e
				out = append(out, &e)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if a.TimesFailed != b.TimesFailed {
				return a.TimesFailed > b.TimesFailed
			}
			if !a.LastFailedAt.Equal(b.LastFailedAt) {
				return a.LastFailedAt.Before(b.LastFailedAt)
			}
			return a.FlashcardID < b.FlashcardID
		})
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

type activityStore struct{ v *view }

func (a activityStore) ActivityDays(
	_ context.Context,
	userID uuid.UUID,
	loc *time.Location,
) ([]domain.CalendarDay, error) {
	var out []domain.CalendarDay
	err := a.v.do("activity.days", func(st *state) error {
		seen := make(map[int64]struct{})
		add := func(t time.Time) {
			d := domain.DayOf(t, loc)
			if _, ok := seen[d.Unix()]; ok {
				return
			}
			seen[d.Unix()] = struct{}{}
			out = append(out, d)
		}
		for _, rec := range st.reviews {
			if rec.UserID == userID {
				add(rec.ReviewDate)
			}
		}
		for key, p := range st.progress {
			if key.userID == userID {
				add(p.CompletedAt)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
		return nil
	})
	return out, err
}

type xpStore struct{ v *view }

func (x xpStore) Append(_ context.Context, tx *domain.XPTransaction) error {
	if tx.Amount < 0 {
		return store.NewStoreError("xp_transaction", "append", "negative amount", store.ErrInvalidEntity)
	}
	return x.v.do("xp.append", func(st *state) error {
		tx.ID = st.newID()
		st.xp = append(st.xp, *tx)
		return nil
	})
}

func (x xpStore) Total(_ context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := x.v.do("xp.total", func(st *state) error {
		for _, t := range st.xp {
			if t.UserID == userID {
				total += t.Amount
			}
		}
		return nil
	})
	return total, err
}

func (x xpStore) SumBetween(_ context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	var sum int
	err := x.v.do("xp.sum_between", func(st *state) error {
		for _, t := range st.xp {
			if t.UserID == userID && !t.OccurredAt.Before(from) && t.OccurredAt.Before(to) {
				sum += t.Amount
			}
		}
		return nil
	})
	return sum, err
}

type sessionStore struct{ v *view }

func (s sessionStore) Create(_ context.Context, session *domain.ReviewSession) error {
	return s.v.do("sessions.create", func(st *state) error {
		if _, ok := st.sessions[session.ID]; ok {
			return store.ErrDuplicate
		}
		st.sessions[session.ID] = *session
		return nil
	})
}

func (s sessionStore) GetForUpdate(_ context.Context, id uuid.UUID) (*domain.ReviewSession, error) {
	var out *domain.ReviewSession
	err := s.v.do("sessions.get_for_update", func(st *state) error {
		rs, ok := st.sessions[id]
		if !ok {
			return store.ErrSessionNotFound
		}
		out = &rs
		return nil
	})
	return out, err
}

func (s sessionStore) GetSubmission(
	_ context.Context,
	sessionID uuid.UUID,
	flashcardID int64,
) (*domain.ReviewSubmission, error) {
	var out *domain.ReviewSubmission
	err := s.v.do("sessions.get_submission", func(st *state) error {
		sub, ok := st.submissions[submissionKey{sessionID, flashcardID}]
		if !ok {
			return store.ErrSubmissionNotFound
		}
		out = &sub
		return nil
	})
	return out, err
}

func (s sessionStore) CreateSubmission(_ context.Context, sub *domain.ReviewSubmission) error {
	return s.v.do("sessions.create_submission", func(st *state) error {
		key := submissionKey{sub.SessionID, sub.FlashcardID}
		if _, ok := st.submissions[key]; ok {
			return store.ErrSubmissionExists
		}
		st.submissions[key] = *sub
		return nil
	})
}
