package db

import "fmt"

type QuizRecord struct {
	ID           string
	Title        string
	PointsReward int
}

type AnswerRecord struct {
	ID      string
	Text    string
	Correct bool
}

type QuestionRecord struct {
	ID      string
	Prompt  string
	Points  int
	Answers []AnswerRecord
}

type QuizAttempt struct {
	UserID        string
	QuizID        string
	RawScore      int
	MaxScore      int
	Passed        bool
	PointsAwarded int
	TimeTakenS    *int
}

func (d *DB) GetQuiz(id string) (*QuizRecord, error) {
	var q QuizRecord
	err := d.conn.QueryRow(`
		SELECT id, title, points_reward FROM quizzes WHERE id = $1
	`, id).Scan(&q.ID, &q.Title, &q.PointsReward)
	if err != nil {
		return nil, fmt.Errorf("getting quiz: %w", err)
	}
	return &q, nil
}

// GetQuizQuestions loads every question of the quiz with its full answer
// set, in catalog order.
func (d *DB) GetQuizQuestions(quizID string) ([]QuestionRecord, error) {
	rows, err := d.conn.Query(`
		SELECT q.id, q.prompt, q.points, a.id, a.text, a.is_correct
		FROM questions q
		LEFT JOIN answers a ON a.question_id = q.id
		WHERE q.quiz_id = $1
		ORDER BY q.position, q.id, a.id
	`, quizID)
	if err != nil {
		return nil, fmt.Errorf("getting quiz questions: %w", err)
	}
	defer rows.Close()

	var questions []QuestionRecord
	index := make(map[string]int)
	for rows.Next() {
		var (
			qID, prompt string
			points      int
			aID, aText  *string
			aCorrect    *bool
		)
		if err := rows.Scan(&qID, &prompt, &points, &aID, &aText, &aCorrect); err != nil {
			return nil, err
		}
		i, ok := index[qID]
		if !ok {
			i = len(questions)
			index[qID] = i
			questions = append(questions, QuestionRecord{ID: qID, Prompt: prompt, Points: points})
		}
		if aID != nil {
			questions[i].Answers = append(questions[i].Answers, AnswerRecord{
				ID:      *aID,
				Text:    *aText,
				Correct: *aCorrect,
			})
		}
	}
	return questions, rows.Err()
}

// RecordQuizAttempt persists the attempt and, when points were awarded,
// applies the balance increment in the same transaction. Attempts are
// append-only: resubmissions insert new rows and passing again awards again.
func (d *DB) RecordQuizAttempt(at QuizAttempt) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO quiz_attempts (user_id, quiz_id, raw_score, max_score, passed, points_awarded, time_taken_s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, at.UserID, at.QuizID, at.RawScore, at.MaxScore, at.Passed, at.PointsAwarded, at.TimeTakenS); err != nil {
		return fmt.Errorf("recording quiz attempt: %w", err)
	}

	if at.PointsAwarded > 0 {
		if _, err := tx.Exec(`
			UPDATE users SET points = points + $1 WHERE id = $2
		`, at.PointsAwarded, at.UserID); err != nil {
			return fmt.Errorf("awarding quiz points: %w", err)
		}
	}

	return tx.Commit()
}
