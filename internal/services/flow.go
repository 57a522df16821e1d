package services

import (
	"fmt"

	"github.com/kaimanfr/checkin/internal/catalog"
	"github.com/kaimanfr/checkin/internal/models"
)

// FlowState is the position of a flow controller in its lifecycle.
type FlowState int

const (
	FlowNotStarted FlowState = iota
	FlowAwaitingAnswer
	FlowCompleted
	FlowCancelled
)

func (s FlowState) String() string {
	switch s {
	case FlowNotStarted:
		return "not_started"
	case FlowAwaitingAnswer:
		return "awaiting_answer"
	case FlowCompleted:
		return "completed"
	case FlowCancelled:
		return "cancelled"
	}
	return "unknown"
}

// EventKind tags the discrete events a flow emits to its observers.
type EventKind int

const (
	EventAnswerRecorded EventKind = iota
	EventFlowCompleted
	EventFlowCancelled
)

// Event notifies observers of flow progress.
type Event struct {
	Kind     EventKind
	Question models.Question // set for EventAnswerRecorded
	Answer   models.Answer   // set for EventAnswerRecorded
}

// RawInput is what the presentation layer forwards for the current question:
// the tapped button's kind and, when that button is Continue, the picker row.
type RawInput struct {
	Kind        models.AnswerKind
	PickerIndex int
}

// FlowController drives one end-to-end pass through a catalog, collecting
// exactly one answer per question. Not safe for concurrent use; the caller
// serializes input, one question at a time.
type FlowController struct {
	cat       *catalog.Catalog
	state     FlowState
	index     int
	answers   *AnswerSet
	observers []func(Event)
}

// NewFlowController builds an idle controller over a catalog.
func NewFlowController(c *catalog.Catalog) *FlowController {
	return &FlowController{cat: c, state: FlowNotStarted, answers: NewAnswerSet()}
}

// Subscribe registers an observer for flow events.
func (f *FlowController) Subscribe(fn func(Event)) {
	f.observers = append(f.observers, fn)
}

func (f *FlowController) emit(ev Event) {
	for _, fn := range f.observers {
		fn(ev)
	}
}

// State returns the controller's lifecycle state.
func (f *FlowController) State() FlowState { return f.state }

// CurrentIndex is the catalog position awaiting an answer.
func (f *FlowController) CurrentIndex() (int, bool) {
	if f.state != FlowAwaitingAnswer {
		return 0, false
	}
	return f.index, true
}

// CurrentQuestion is the question awaiting an answer.
func (f *FlowController) CurrentQuestion() (models.Question, bool) {
	if f.state != FlowAwaitingAnswer {
		return models.Question{}, false
	}
	return f.cat.Question(f.index), true
}

// Answers exposes the accumulator. Owned by this controller until the flow
// terminates.
func (f *FlowController) Answers() *AnswerSet { return f.answers }

// Catalog returns the catalog this flow traverses.
func (f *FlowController) Catalog() *catalog.Catalog { return f.cat }

// Start moves the flow to the first question. Starting twice is an error.
func (f *FlowController) Start() error {
	if f.state != FlowNotStarted {
		return NewFlowStateError(fmt.Sprintf("flow already started (state %s)", f.state))
	}
	if f.cat.Len() == 0 {
		return NewFlowStateError("catalog is empty")
	}
	f.state = FlowAwaitingAnswer
	f.index = 0
	return nil
}

// Submit validates raw input against the current question's domain, records
// the resulting answer and advances. Out-of-domain input leaves state and
// answers untouched. Well-behaved presentation layers only offer buttons
// from the question's declared domain, so a rejection here is a UI contract
// violation.
func (f *FlowController) Submit(in RawInput) error {
	if f.state != FlowAwaitingAnswer {
		return NewFlowStateError(fmt.Sprintf("no question awaiting an answer (state %s)", f.state))
	}
	q := f.cat.Question(f.index)
	value, err := resolveInput(q, in)
	if err != nil {
		return err
	}
	ans := models.Answer{QuestionID: q.ID, Value: value}
	f.answers.Record(ans)
	f.emit(Event{Kind: EventAnswerRecorded, Question: q, Answer: ans})
	if f.index+1 < f.cat.Len() {
		f.index++
		return nil
	}
	f.state = FlowCompleted
	f.emit(Event{Kind: EventFlowCompleted})
	return nil
}

// resolveInput maps raw UI input to a typed answer value for one question.
// A Continue tap on a picker question translates the selected row into the
// question's concrete numeric value; the row index itself is never stored.
func resolveInput(q models.Question, in RawInput) (models.AnswerValue, error) {
	if in.Kind == models.AnswerContinue {
		if !q.Numeric() {
			return models.AnswerValue{}, NewInvalidAnswerError(fmt.Sprintf("question %q does not take a picker value", q.ID))
		}
		values := q.Range.Values()
		if in.PickerIndex < 0 || in.PickerIndex >= len(values) {
			return models.AnswerValue{}, NewInvalidAnswerError(fmt.Sprintf("picker index %d out of range for question %q", in.PickerIndex, q.ID))
		}
		return models.AnswerValue{Kind: models.AnswerNumeric, Numeric: values[in.PickerIndex]}, nil
	}
	if !q.Allows(in.Kind) {
		return models.AnswerValue{}, NewInvalidAnswerError(fmt.Sprintf("answer kind %q not permitted for question %q", in.Kind, q.ID))
	}
	return models.AnswerValue{Kind: in.Kind}, nil
}

// Cancel terminates the flow from any awaiting state; the accumulated
// answers are discarded by the caller, never submitted.
func (f *FlowController) Cancel() error {
	if f.state != FlowAwaitingAnswer {
		return NewFlowStateError(fmt.Sprintf("cannot cancel flow in state %s", f.state))
	}
	f.state = FlowCancelled
	f.emit(Event{Kind: EventFlowCancelled})
	return nil
}

// undo rolls the machine back one question and removes its recorded answer.
// Reachable only through the swipe variant; a no-op at the first question.
func (f *FlowController) undo() {
	if f.state != FlowAwaitingAnswer || f.index == 0 {
		return
	}
	f.index--
	f.answers.Remove(f.cat.Question(f.index).ID)
}
