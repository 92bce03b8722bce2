package scoring

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"trailhunt/internal/db"
	"trailhunt/internal/metrics"
)

// ErrQuizNotFound means the submission named a quiz that does not exist.
var ErrQuizNotFound = errors.New("quiz not found")

// Service grades submissions and feeds the point ledger on a pass.
type Service struct {
	DB *db.DB
}

// SubmitResult is the persisted, point-carrying view of one graded attempt.
type SubmitResult struct {
	Result
	PointsAwarded int
}

// Submit grades the submission, persists the attempt unconditionally and
// awards the quiz reward on a pass. Attempts are not deduplicated: a player
// who passes again is awarded again. That asymmetry with the discovery
// ledger is the system's documented behavior, not an oversight to patch here.
func (s *Service) Submit(userID, quizID string, answers []SubmittedAnswer, timeTakenS *int) (*SubmitResult, error) {
	record, err := s.DB.GetQuiz(quizID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}

	questions, err := s.DB.GetQuizQuestions(quizID)
	if err != nil {
		return nil, err
	}

	quiz := Quiz{
		ID:           record.ID,
		Title:        record.Title,
		PointsReward: record.PointsReward,
		Questions:    make([]Question, 0, len(questions)),
	}
	for _, q := range questions {
		question := Question{ID: q.ID, Prompt: q.Prompt, Points: q.Points}
		for _, a := range q.Answers {
			question.Answers = append(question.Answers, Answer{ID: a.ID, Text: a.Text, Correct: a.Correct})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	graded := Grade(quiz, answers)

	awarded := 0
	if graded.Passed {
		awarded = quiz.PointsReward
	}

	if err := s.DB.RecordQuizAttempt(db.QuizAttempt{
		UserID:        userID,
		QuizID:        quizID,
		RawScore:      graded.RawScore,
		MaxScore:      graded.MaxScore,
		Passed:        graded.Passed,
		PointsAwarded: awarded,
		TimeTakenS:    timeTakenS,
	}); err != nil {
		return nil, fmt.Errorf("submitting quiz %s: %w", quizID, err)
	}

	if graded.Passed {
		log.Printf("[Scoring] User %s passed quiz %q %d/%d (+%d points)\n",
			userID, quiz.Title, graded.RawScore, graded.MaxScore, awarded)
		metrics.PointsAwardedTotal.Add(float64(awarded))
	}
	metrics.QuizAttemptsTotal.WithLabelValues(passedLabel(graded.Passed)).Inc()

	return &SubmitResult{Result: graded, PointsAwarded: awarded}, nil
}

func passedLabel(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}
