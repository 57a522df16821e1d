// Package catalog holds the fixed question catalogs of the check-in app.
// Catalogs are static configuration: defined at startup, never mutated.
package catalog

import "github.com/kaimanfr/checkin/internal/models"

// Catalog is an ordered, read-only list of questions.
type Catalog struct {
	name      string
	questions []models.Question
	byID      map[string]int
}

func newCatalog(name string, qs []models.Question) *Catalog {
	idx := make(map[string]int, len(qs))
	for i, q := range qs {
		idx[q.ID] = i
	}
	return &Catalog{name: name, questions: qs, byID: idx}
}

// Name identifies the catalog ("initial" or "daily").
func (c *Catalog) Name() string { return c.name }

// Len is the number of questions.
func (c *Catalog) Len() int { return len(c.questions) }

// Question returns the question at position i.
func (c *Catalog) Question(i int) models.Question { return c.questions[i] }

// Questions returns a copy of the ordered question list.
func (c *Catalog) Questions() []models.Question {
	return append([]models.Question(nil), c.questions...)
}

// IndexOf returns the catalog position of a question id, or -1.
func (c *Catalog) IndexOf(id string) int {
	if i, ok := c.byID[id]; ok {
		return i
	}
	return -1
}

var yesNo = []models.AnswerKind{models.AnswerYes, models.AnswerNo}

func binary(id, text string, extra ...models.AnswerKind) models.Question {
	return models.Question{ID: id, DisplayText: text, Buttons: append(append([]models.AnswerKind(nil), yesNo...), extra...)}
}

func numeric(id, text string, r models.NumericRange) models.Question {
	return models.Question{ID: id, DisplayText: text, Buttons: []models.AnswerKind{models.AnswerContinue}, Range: &r}
}

var initialProfile = newCatalog("initial", []models.Question{
	binary("fever", "Have you had a fever in the last few days?"),
	binary("cough", "Do you have a dry cough?"),
	binary("taste", "Have you lost your sense of taste or smell?"),
	binary("throatSoreness", "Do you have a sore throat?"),
	binary("diarrhea", "Have you had diarrhea?"),
	binary("tired", "Do you feel unusually tired?"),
	binary("eatDrink", "Is it hard for you to eat or drink?"),
	binary("breathingIssues", "Do you have trouble breathing?"),
	numeric("age", "How old are you?", models.NumericRange{Min: 1, Max: 110, DefaultValue: 30, Unit: "years"}),
	numeric("height", "How tall are you?", models.NumericRange{Min: 1, Max: 240, DefaultValue: 150, Unit: "cm"}),
	numeric("weight", "How much do you weigh?", models.NumericRange{Min: 1, Max: 150, DefaultValue: 60, Unit: "kg"}),
	binary("heartDisease", "Do you have a heart condition?", models.AnswerDontKnow),
	binary("diabetese", "Do you have diabetes?"),
	binary("cancer", "Are you being treated for cancer?"),
	binary("breathingIllness", "Do you have a chronic respiratory illness?"),
	binary("kidney", "Do you have a kidney condition?"),
	binary("liver", "Do you have a liver condition?"),
	binary("pregnant", "Are you pregnant?", models.AnswerNotApplicable),
	binary("immunodefense", "Do you have an immune deficiency?", models.AnswerDontKnow),
	binary("immunosupressant", "Are you taking immunosuppressant drugs?", models.AnswerDontKnow),
	binary("postalCode", "Do you agree to share your postal code?", models.AnswerRatherNotAnswer),
})

// Daily metric keys keep the backend's historical spelling.
var dailyMetrics = newCatalog("daily", []models.Question{
	binary("hasdrippingnose", "Is your nose running?"),
	binary("hascough", "Are you coughing?"),
	binary("hasfever", "Do you have a fever?"),
	binary("hasthroatsoreness", "Is your throat sore?"),
	binary("hasbreatingissues", "Are you having trouble breathing?"),
})

// InitialProfile is the one-time onboarding questionnaire.
func InitialProfile() *Catalog { return initialProfile }

// DailyMetrics is the five-question daily symptom check.
func DailyMetrics() *Catalog { return dailyMetrics }
