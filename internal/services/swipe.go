package services

import "github.com/kaimanfr/checkin/internal/models"

// SwipeDirection is the gesture input of the daily-metrics card stack.
type SwipeDirection int

const (
	SwipeLeft  SwipeDirection = iota // no
	SwipeRight                       // yes
)

// SwipeFlow adapts card-swipe gestures onto a flow controller. Left means
// no, right means yes; those are the only accepted shapes. The undo path
// exists only in this variant.
type SwipeFlow struct {
	flow *FlowController
}

// NewSwipeFlow wraps a controller whose catalog holds binary questions only.
func NewSwipeFlow(flow *FlowController) *SwipeFlow {
	return &SwipeFlow{flow: flow}
}

// Flow exposes the underlying controller for state and answer inspection.
func (s *SwipeFlow) Flow() *FlowController { return s.flow }

// Start begins the card stack at the first question.
func (s *SwipeFlow) Start() error { return s.flow.Start() }

// Swipe records the answer for the top card and advances.
func (s *SwipeFlow) Swipe(dir SwipeDirection) error {
	kind := models.AnswerNo
	if dir == SwipeRight {
		kind = models.AnswerYes
	}
	return s.flow.Submit(RawInput{Kind: kind})
}

// Undo rewinds the last swipe: the machine steps back one question and the
// answer recorded for it is dropped. Undoing at the first card is a no-op.
func (s *SwipeFlow) Undo() {
	s.flow.undo()
}

// Cancel abandons the card stack without submitting.
func (s *SwipeFlow) Cancel() error { return s.flow.Cancel() }
