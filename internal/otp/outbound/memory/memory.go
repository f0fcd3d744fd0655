// Package memory is a process-local transaction store with the same
// semantics as the postgres repository. It backs local runs without a
// database and the usecase tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/K-Santhoshkumar/GS/internal/pkg/goerror"
	"github.com/samber/lo"
)

type Store struct {
	mu    sync.Mutex
	txs   map[int64]*entity.Transaction
	users map[int64]string
}

func New() *Store {
	return &Store{
		txs:   make(map[int64]*entity.Transaction),
		users: make(map[int64]string),
	}
}

// SaveUser registers the email used when a code is requested for a user only.
func (s *Store) SaveUser(id int64, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = email
}

func (s *Store) GetUserEmail(_ context.Context, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.users[userID]
	if !ok {
		return "", goerror.ErrNotFound
	}
	return email, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx *entity.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txs[tx.ID]; exists {
		return goerror.ErrConflict
	}
	s.txs[tx.ID] = clone(tx)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (*entity.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return s.withUserEmail(tx), nil
}

func (s *Store) MarkDelivered(_ context.Context, id int64, sentAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[id]
	if !ok || !tx.Status.IsLive() {
		return false, nil
	}

	tx.Status = entity.StatusDelivered
	if tx.SentAt == nil {
		tx.SentAt = &sentAt
	}
	return true, nil
}

func (s *Store) Verify(_ context.Context, in entity.VerifyAttempt) (entity.VerifyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := lo.Filter(lo.Values(s.txs), func(tx *entity.Transaction, _ int) bool {
		return tx.Purpose == in.Purpose &&
			tx.Status == entity.StatusDelivered &&
			in.Filter.Matches(tx) &&
			(tx.Code == in.Code || !in.Filter.IsEmpty())
	})
	if len(candidates) == 0 {
		return entity.VerifyResult{Outcome: entity.VerifyOutcomeNoMatch}, nil
	}

	// Exact code first, then newest.
	cur := slices.MinFunc(candidates, func(a, b *entity.Transaction) int {
		am, bm := a.Code == in.Code, b.Code == in.Code
		if am != bm {
			if am {
				return -1
			}
			return 1
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	outcome := entity.ApplyVerifyAttempt(cur, in)

	return entity.VerifyResult{
		TransactionID: cur.ID,
		Status:        cur.Status,
		Attempts:      cur.Attempts,
		Outcome:       outcome,
	}, nil
}

func (s *Store) InvalidateExisting(_ context.Context, purpose entity.Purpose, filter entity.RecipientFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, tx := range s.txs {
		if tx.Purpose == purpose && tx.Status.IsLive() && filter.Matches(tx) {
			tx.Status = entity.StatusInvalidated
			n++
		}
	}
	return n, nil
}

func (s *Store) ListRecent(_ context.Context, limit int) ([]entity.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := lo.Map(lo.Values(s.txs), func(tx *entity.Transaction, _ int) entity.Transaction {
		return *s.withUserEmail(tx)
	})
	slices.SortFunc(items, func(a, b entity.Transaction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) withUserEmail(tx *entity.Transaction) *entity.Transaction {
	out := clone(tx)
	if tx.UserID != nil {
		out.UserEmail = s.users[*tx.UserID]
	}
	return out
}

func clone(tx *entity.Transaction) *entity.Transaction {
	out := *tx
	out.AdditionalInfo = tx.AdditionalInfo.Clone()
	if tx.UserID != nil {
		out.UserID = lo.ToPtr(*tx.UserID)
	}
	if tx.SentAt != nil {
		out.SentAt = lo.ToPtr(*tx.SentAt)
	}
	if tx.VerifiedAt != nil {
		out.VerifiedAt = lo.ToPtr(*tx.VerifiedAt)
	}
	return &out
}
