package otp

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"quizgate/internal/apperr"
	"quizgate/internal/models"
)

// memStore is an in-memory Store. Transaction serialises callers the way a
// row lock would and rolls state back when the callback fails.
type memStore struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	otps     []models.QuizOTP
	accesses []models.QuizOTPAccess
	nextID   uint

	failLookup error
	inTx       atomic.Bool
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.inTx.Store(true)
	defer m.inTx.Store(false)

	m.mu.Lock()
	otps := append([]models.QuizOTP(nil), m.otps...)
	accesses := append([]models.QuizOTPAccess(nil), m.accesses...)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.otps, m.accesses = otps, accesses
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) ActiveCodeExists(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.otps {
		if o.Code == code && o.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateOTP(ctx context.Context, otp *models.QuizOTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	otp.ID = m.id()
	m.otps = append(m.otps, *otp)
	return nil
}

func (m *memStore) find(id uint) *models.QuizOTP {
	for i := range m.otps {
		if m.otps[i].ID == id {
			return &m.otps[i]
		}
	}
	return nil
}

func (m *memStore) GetOTP(ctx context.Context, id uint) (*models.QuizOTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o := m.find(id); o != nil {
		cp := *o
		return &cp, nil
	}
	return nil, apperr.NotFound("access code %d not found", id)
}

func (m *memStore) LockOTPByCode(ctx context.Context, code string) (*models.QuizOTP, error) {
	return m.FindOTPByCode(ctx, code)
}

func (m *memStore) FindOTPByCode(ctx context.Context, code string) (*models.QuizOTP, error) {
	if m.failLookup != nil {
		return nil, m.failLookup
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.QuizOTP
	for i := range m.otps {
		o := &m.otps[i]
		if o.Code != code {
			continue
		}
		if best == nil || (o.IsActive && !best.IsActive) || (o.IsActive == best.IsActive && o.CreatedAt.After(best.CreatedAt)) {
			best = o
		}
	}
	if best == nil {
		return nil, apperr.NotFound("access code not found")
	}
	cp := *best
	return &cp, nil
}

func (m *memStore) IncrementUsage(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o := m.find(id); o != nil {
		o.UsageCount++
		return nil
	}
	return errors.New("no such row")
}

func (m *memStore) Deactivate(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o := m.find(id); o != nil {
		o.IsActive = false
	}
	return nil
}

func (m *memStore) ListOTPsForQuiz(ctx context.Context, quizID uint) ([]models.QuizOTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.QuizOTP
	for _, o := range m.otps {
		if o.QuizID == quizID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.otps {
		o := &m.otps[i]
		if o.IsActive && !o.ExpiresAt.After(now) {
			o.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	purged := make(map[uint]bool)
	var kept []models.QuizOTP
	for _, o := range m.otps {
		if !o.ExpiresAt.After(now) {
			purged[o.ID] = true
			continue
		}
		kept = append(kept, o)
	}
	var keptAccess []models.QuizOTPAccess
	for _, a := range m.accesses {
		if !purged[a.OTPID] {
			keptAccess = append(keptAccess, a)
		}
	}
	m.otps, m.accesses = kept, keptAccess
	return int64(len(purged)), nil
}

func (m *memStore) CreateAccess(ctx context.Context, access *models.QuizOTPAccess) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	access.ID = m.id()
	m.accesses = append(m.accesses, *access)
	return nil
}

func (m *memStore) AccessExists(ctx context.Context, otpID, studentID uint) (bool, error) {
	a, err := m.LatestAccess(ctx, otpID, studentID)
	return a != nil, err
}

func (m *memStore) LatestAccess(ctx context.Context, otpID, studentID uint) (*models.QuizOTPAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.QuizOTPAccess
	for i := range m.accesses {
		a := m.accesses[i]
		if a.OTPID != otpID || a.StudentID != studentID {
			continue
		}
		if latest == nil || !a.AccessedAt.Before(latest.AccessedAt) {
			latest = &a
		}
	}
	return latest, nil
}

func (m *memStore) CountAccesses(ctx context.Context, otpID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.accesses {
		if a.OTPID == otpID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) QuizAccessExists(ctx context.Context, studentID, quizID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accesses {
		if a.StudentID != studentID {
			continue
		}
		if o := m.find(a.OTPID); o != nil && o.QuizID == quizID {
			return true, nil
		}
	}
	return false, nil
}

type fakeQuizzes struct {
	quizzes map[uint]*models.Quiz
	owners  map[uint]uint

	// store, when set, lets the fake note loads made inside a transaction.
	store     *memStore
	loadsInTx atomic.Int32
}

func (f *fakeQuizzes) GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	if f.store != nil && f.store.inTx.Load() {
		f.loadsInTx.Add(1)
	}
	q, ok := f.quizzes[quizID]
	if !ok {
		return nil, apperr.NotFound("quiz %d not found", quizID)
	}
	return q, nil
}

func (f *fakeQuizzes) QuizOwner(ctx context.Context, quizID uint) (uint, error) {
	owner, ok := f.owners[quizID]
	if !ok {
		return 0, apperr.NotFound("quiz %d not found", quizID)
	}
	return owner, nil
}

type recordedMessage struct {
	room string
	kind string
	data interface{}
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []recordedMessage
}

func (r *recordingNotifier) BroadcastMessage(room string, messageType string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, recordedMessage{room: room, kind: messageType, data: data})
}

func (r *recordingNotifier) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.kind == kind {
			n++
		}
	}
	return n
}
