package scoring

// Answer is one selectable option on a question.
type Answer struct {
	ID      string
	Text    string
	Correct bool
}

// Question carries its point value and the full answer set.
type Question struct {
	ID      string
	Prompt  string
	Points  int
	Answers []Answer
}

// Quiz is the read-only catalog view the grader works against.
type Quiz struct {
	ID           string
	Title        string
	PointsReward int
	Questions    []Question
}

// SubmittedAnswer pairs a question with the answer the player picked.
type SubmittedAnswer struct {
	QuestionID string `json:"question_id"`
	AnswerID   string `json:"answer_id"`
}

// QuestionResult reports one submitted answer's outcome.
type QuestionResult struct {
	QuestionID string `json:"question_id"`
	Correct    bool   `json:"correct"`
	Points     int    `json:"points"`
}

// Result is the graded view of one submission.
type Result struct {
	RawScore  int
	MaxScore  int
	Passed    bool
	Questions []QuestionResult
}

// Grade scores a submission against the quiz. Unknown question or answer ids
// contribute zero silently; they are player input, not server faults.
// MaxScore counts every question in the quiz, not just the submitted ones,
// and passing requires at least half of it.
func Grade(quiz Quiz, answers []SubmittedAnswer) Result {
	questions := make(map[string]Question, len(quiz.Questions))
	maxScore := 0
	for _, q := range quiz.Questions {
		questions[q.ID] = q
		maxScore += q.Points
	}

	res := Result{MaxScore: maxScore}
	for _, sub := range answers {
		qr := QuestionResult{QuestionID: sub.QuestionID}
		if q, ok := questions[sub.QuestionID]; ok {
			for _, a := range q.Answers {
				if a.ID == sub.AnswerID && a.Correct {
					qr.Correct = true
					qr.Points = q.Points
					res.RawScore += q.Points
					break
				}
			}
		}
		res.Questions = append(res.Questions, qr)
	}

	res.Passed = maxScore > 0 && res.RawScore*2 >= maxScore
	return res
}
