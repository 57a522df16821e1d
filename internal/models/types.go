package models

import "time"

// AnswerKind enumerates the permitted answer shapes.
type AnswerKind string

const (
	AnswerYes             AnswerKind = "yes"
	AnswerNo              AnswerKind = "no"
	AnswerDontKnow        AnswerKind = "dontKnow"
	AnswerNotApplicable   AnswerKind = "notApplicable"
	AnswerRatherNotAnswer AnswerKind = "ratherNotAnswer"
	AnswerContinue        AnswerKind = "continue" // picker questions only; never stored
	AnswerNumeric         AnswerKind = "numeric"
)

// AnswerValue is one of the shapes a user can give for a question.
// Numeric answers carry their concrete value; the other shapes are unit-like.
type AnswerValue struct {
	Kind    AnswerKind
	Numeric int // set only when Kind == AnswerNumeric
}

// Answer binds a given value to the question it answers.
type Answer struct {
	QuestionID string
	Value      AnswerValue
}

// NumericRange describes the picker domain of a numeric question.
type NumericRange struct {
	Min          int
	Max          int
	DefaultValue int
	Unit         string // display unit, e.g. "cm"
}

// Values returns the ordered picker values Min..Max.
func (r NumericRange) Values() []int {
	vs := make([]int, 0, r.Max-r.Min+1)
	for v := r.Min; v <= r.Max; v++ {
		vs = append(vs, v)
	}
	return vs
}

// DefaultIndex is the picker row preselected for the range's default value.
func (r NumericRange) DefaultIndex() int {
	if r.DefaultValue < r.Min || r.DefaultValue > r.Max {
		return 0
	}
	return r.DefaultValue - r.Min
}

// Question is an immutable catalog entry.
type Question struct {
	ID          string
	DisplayText string
	Buttons     []AnswerKind  // answer shapes offered for this question
	Range       *NumericRange // nil unless the question collects a numeric value
}

// Numeric reports whether the question is answered through the picker.
func (q Question) Numeric() bool { return q.Range != nil }

// Allows reports whether the given kind is in the question's answer domain.
func (q Question) Allows(kind AnswerKind) bool {
	if kind == AnswerNumeric {
		return q.Numeric()
	}
	for _, b := range q.Buttons {
		if b == kind {
			return true
		}
	}
	return false
}

// MetricEntry is one (metric key, boolean) pair of a daily report.
type MetricEntry struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

// Coordinates is a device location fix attached to a daily report.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DailyMetricsReport is the terminal object of the daily-metrics flow.
// Coordinates are attached at most once, before transmission.
type DailyMetricsReport struct {
	ID          string
	Entries     []MetricEntry
	Timestamp   time.Time
	Coordinates *Coordinates
}

// Session is the process-wide authentication state. Tokens are opaque.
type Session struct {
	Email        string
	AccessToken  string
	RefreshToken string
	Lastname     string
	Firstname    string
}

// LoggedIn reports whether an access token is present.
func (s Session) LoggedIn() bool { return s.AccessToken != "" }

// BasicUser is the friend-listing projection of a user.
type BasicUser struct {
	ID        int    `json:"id"`
	Lastname  string `json:"lastname"`
	Firstname string `json:"firstname"`
}

// MetricHistoryEntry is one past report as the backend returns it.
type MetricHistoryEntry struct {
	Entries   []MetricEntry `json:"datas"`
	Timestamp time.Time     `json:"date"`
}

// User is the backend's user projection, metric history included.
type User struct {
	ID         int                  `json:"id"`
	Lastname   string               `json:"lastname"`
	Firstname  string               `json:"firstname"`
	Birthdate  string               `json:"birthdate"` // yyyy-MM-dd
	PostalCode string               `json:"cp,omitempty"`
	Metrics    []MetricHistoryEntry `json:"datas,omitempty"`
}

// CurrentUser extends User with the accounts sharing data with it.
type CurrentUser struct {
	User
	SharedUsers []User `json:"sharedUsers,omitempty"`
}
