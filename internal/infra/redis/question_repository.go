package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-game/internal/domain"
	"quiz-game/internal/infra/memory"
)

// QuestionRepository caches question banks in Redis and falls back to a loader on cache miss.
// Banks are stored as JSON: SET quiz:bank:{category} {bank} EX ttl
type QuestionRepository struct {
	client *redis.Client
	loader memory.BankLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader memory.BankLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetBank(ctx context.Context, category string) (domain.QuestionBank, error) {
	if bank, ok := r.cached(ctx, category); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(category, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if bank, ok := r.cached(ctx, category); ok {
			return bank, nil
		}
		bank, err := r.loader.LoadBank(ctx, category)
		if err != nil {
			return domain.QuestionBank{}, err
		}
		if data, err := json.Marshal(bank); err == nil {
			// best-effort; a failed write only costs a reload
			_ = r.client.Set(ctx, bankKey(category), data, r.ttlWithJitter()).Err()
		}
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

func (r *QuestionRepository) cached(ctx context.Context, category string) (domain.QuestionBank, bool) {
	data, err := r.client.Get(ctx, bankKey(category)).Bytes()
	if err != nil {
		return domain.QuestionBank{}, false
	}
	var bank domain.QuestionBank
	if err := json.Unmarshal(data, &bank); err != nil {
		return domain.QuestionBank{}, false
	}
	return bank, true
}

// Invalidate drops a cached bank so the next read reloads it.
func (r *QuestionRepository) Invalidate(ctx context.Context, category string) error {
	return r.client.Del(ctx, bankKey(category)).Err()
}

func bankKey(category string) string {
	return "quiz:bank:" + category
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
