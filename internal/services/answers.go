package services

import (
	"github.com/kaimanfr/checkin/internal/catalog"
	"github.com/kaimanfr/checkin/internal/models"
)

// AnswerSet accumulates one answer per question as a flow progresses.
// It is owned by a single flow controller and is not safe for concurrent use.
type AnswerSet struct {
	answers map[string]models.Answer
}

func NewAnswerSet() *AnswerSet {
	return &AnswerSet{answers: map[string]models.Answer{}}
}

// Record stores the answer for its question id, replacing any prior one.
func (a *AnswerSet) Record(ans models.Answer) {
	a.answers[ans.QuestionID] = ans
}

// Remove drops the answer for the given question id. Used by the undo path.
func (a *AnswerSet) Remove(questionID string) {
	delete(a.answers, questionID)
}

// Get returns the recorded answer for a question id, if any.
func (a *AnswerSet) Get(questionID string) (models.Answer, bool) {
	ans, ok := a.answers[questionID]
	return ans, ok
}

// Len is the number of recorded answers.
func (a *AnswerSet) Len() int { return len(a.answers) }

// Ordered returns the answers in catalog order, skipping unanswered
// questions. A completed flow leaves no gaps; callers treating gaps as
// impossible should check Len against the catalog first.
func (a *AnswerSet) Ordered(c *catalog.Catalog) []models.Answer {
	out := make([]models.Answer, 0, len(a.answers))
	for _, q := range c.Questions() {
		if ans, ok := a.answers[q.ID]; ok {
			out = append(out, ans)
		}
	}
	return out
}

// WireMap renders the answers as question-key to answer-token pairs.
func (a *AnswerSet) WireMap(c *catalog.Catalog) map[string]string {
	out := make(map[string]string, len(a.answers))
	for _, ans := range a.Ordered(c) {
		out[ans.QuestionID] = ans.Value.Token()
	}
	return out
}
