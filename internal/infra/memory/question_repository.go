package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-game/internal/domain"
)

// BankLoader fetches a category's questions from a backing store.
type BankLoader interface {
	LoadBank(ctx context.Context, category string) (domain.QuestionBank, error)
}

// QuestionRepository caches question banks with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedBank
}

type cachedBank struct {
	bank      domain.QuestionBank
	expiresAt time.Time
}

func NewQuestionRepository(loader BankLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

func (r *QuestionRepository) GetBank(ctx context.Context, category string) (domain.QuestionBank, error) {
	if bank, ok := r.cached(category); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(category, func() (interface{}, error) {
		if bank, ok := r.cached(category); ok {
			return bank, nil
		}
		bank, err := r.loader.LoadBank(ctx, category)
		if err != nil {
			return domain.QuestionBank{}, err
		}

		r.mu.Lock()
		r.cache[category] = cachedBank{
			bank:      bank,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

func (r *QuestionRepository) cached(category string) (domain.QuestionBank, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[category]
	if !ok || !entry.expiresAt.After(now) {
		return domain.QuestionBank{}, false
	}
	return entry.bank, true
}

func (r *QuestionRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticBankLoader serves banks from an in-memory map (useful for tests/demos).
type StaticBankLoader struct {
	banks map[string]domain.QuestionBank
}

func NewStaticBankLoader(questions []domain.Question) *StaticBankLoader {
	banks := make(map[string]domain.QuestionBank)
	for _, q := range questions {
		bank := banks[q.Category]
		bank.Category = q.Category
		bank.Questions = append(bank.Questions, q)
		banks[q.Category] = bank
	}
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadBank(_ context.Context, category string) (domain.QuestionBank, error) {
	if bank, ok := l.banks[category]; ok {
		return bank, nil
	}
	return domain.QuestionBank{}, domain.ErrQuestionBankNotFound
}

// Categories lists the categories with at least one question.
func (l *StaticBankLoader) Categories() []string {
	out := make([]string, 0, len(l.banks))
	for c := range l.banks {
		out = append(out, c)
	}
	return out
}
