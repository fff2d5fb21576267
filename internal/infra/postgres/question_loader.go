package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-game/internal/domain"
)

// QuestionLoader loads a category's questions from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadBank(ctx context.Context, category string) (domain.QuestionBank, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, category, difficulty, question_text, scenario, options, correct_answer, explanation, points_value
		FROM questions WHERE category=$1 ORDER BY id`, category)
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	bank := domain.QuestionBank{Category: category}
	for rows.Next() {
		var q domain.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.Category, &q.Difficulty, &q.Prompt, &q.Scenario, &options, &q.CorrectAnswer, &q.Explanation, &q.Points); err != nil {
			return domain.QuestionBank{}, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return domain.QuestionBank{}, fmt.Errorf("unmarshal options: %w", err)
		}
		bank.Questions = append(bank.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("load questions: %w", err)
	}
	if len(bank.Questions) == 0 {
		return domain.QuestionBank{}, domain.ErrQuestionBankNotFound
	}
	return bank, nil
}

// SaveQuestions upserts questions, used to seed a bank.
func (l *QuestionLoader) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		difficulty := q.Difficulty
		if difficulty == "" {
			difficulty = "medium"
		}
		_, err = l.pool.Exec(ctx, `
			INSERT INTO questions (id, category, difficulty, question_text, scenario, options, correct_answer, explanation, points_value)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				category=EXCLUDED.category, difficulty=EXCLUDED.difficulty, question_text=EXCLUDED.question_text,
				scenario=EXCLUDED.scenario, options=EXCLUDED.options, correct_answer=EXCLUDED.correct_answer,
				explanation=EXCLUDED.explanation, points_value=EXCLUDED.points_value`,
			q.ID, q.Category, difficulty, q.Prompt, q.Scenario, string(options), q.CorrectAnswer, q.Explanation, q.Points)
		if err != nil {
			return fmt.Errorf("save question %s: %w", q.ID, err)
		}
	}
	return nil
}
