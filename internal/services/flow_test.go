package services

import (
	"testing"

	"github.com/kaimanfr/checkin/internal/catalog"
	"github.com/kaimanfr/checkin/internal/models"
)

func answerFor(q models.Question) RawInput {
	if q.Numeric() {
		return RawInput{Kind: models.AnswerContinue, PickerIndex: q.Range.DefaultIndex()}
	}
	return RawInput{Kind: models.AnswerYes}
}

func TestFullTraversalCompletes(t *testing.T) {
	cat := catalog.InitialProfile()
	flow := NewFlowController(cat)

	var recorded, completed int
	flow.Subscribe(func(ev Event) {
		switch ev.Kind {
		case EventAnswerRecorded:
			recorded++
		case EventFlowCompleted:
			completed++
		}
	})

	if err := flow.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for flow.State() == FlowAwaitingAnswer {
		q, _ := flow.CurrentQuestion()
		if err := flow.Submit(answerFor(q)); err != nil {
			t.Fatalf("Submit %s: %v", q.ID, err)
		}
	}
	if flow.State() != FlowCompleted {
		t.Fatalf("state = %s, want completed", flow.State())
	}
	if flow.Answers().Len() != cat.Len() {
		t.Fatalf("answer set has %d answers, want %d", flow.Answers().Len(), cat.Len())
	}
	for _, q := range cat.Questions() {
		if _, ok := flow.Answers().Get(q.ID); !ok {
			t.Fatalf("no answer recorded for %s", q.ID)
		}
	}
	if recorded != cat.Len() || completed != 1 {
		t.Fatalf("events: recorded=%d completed=%d, want %d and 1", recorded, completed, cat.Len())
	}
}

func TestStartTwiceFails(t *testing.T) {
	flow := NewFlowController(catalog.DailyMetrics())
	if err := flow.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := flow.Start(); !HasCode(err, ErrorFlowState) {
		t.Fatalf("second Start = %v, want flow_state error", err)
	}
}

func TestInvalidAnswerLeavesStateUnchanged(t *testing.T) {
	cat := catalog.InitialProfile()
	flow := NewFlowController(cat)
	if err := flow.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// fever only permits yes/no
	err := flow.Submit(RawInput{Kind: models.AnswerDontKnow})
	if !HasCode(err, ErrorInvalidAnswer) {
		t.Fatalf("Submit out-of-domain = %v, want invalid_answer error", err)
	}
	if idx, _ := flow.CurrentIndex(); idx != 0 {
		t.Fatalf("index moved to %d after rejected input", idx)
	}
	if flow.Answers().Len() != 0 {
		t.Fatalf("answer set mutated by rejected input")
	}

	// a continue tap on a non-picker question is also out of domain
	err = flow.Submit(RawInput{Kind: models.AnswerContinue})
	if !HasCode(err, ErrorInvalidAnswer) {
		t.Fatalf("continue on binary question = %v, want invalid_answer error", err)
	}
}

func TestPickerIndexTranslatesToValue(t *testing.T) {
	cat := catalog.InitialProfile()
	flow := NewFlowController(cat)
	if err := flow.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ageIndex := cat.IndexOf("age")
	for flow.State() == FlowAwaitingAnswer {
		idx, _ := flow.CurrentIndex()
		if idx == ageIndex {
			// age spans 1..110; picker row 29 is the value 30
			if err := flow.Submit(RawInput{Kind: models.AnswerContinue, PickerIndex: 29}); err != nil {
				t.Fatalf("Submit age: %v", err)
			}
			break
		}
		q, _ := flow.CurrentQuestion()
		if err := flow.Submit(answerFor(q)); err != nil {
			t.Fatalf("Submit %s: %v", q.ID, err)
		}
	}
	ans, ok := flow.Answers().Get("age")
	if !ok {
		t.Fatalf("no age answer recorded")
	}
	if ans.Value.Kind != models.AnswerNumeric || ans.Value.Numeric != 30 {
		t.Fatalf("age answer = %+v, want numeric 30", ans.Value)
	}
}

func TestPickerIndexOutOfRange(t *testing.T) {
	cat := catalog.InitialProfile()
	flow := NewFlowController(cat)
	if err := flow.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for flow.State() == FlowAwaitingAnswer {
		q, _ := flow.CurrentQuestion()
		if q.ID == "age" {
			break
		}
		if err := flow.Submit(answerFor(q)); err != nil {
			t.Fatalf("Submit %s: %v", q.ID, err)
		}
	}
	if err := flow.Submit(RawInput{Kind: models.AnswerContinue, PickerIndex: 110}); !HasCode(err, ErrorInvalidAnswer) {
		t.Fatalf("out-of-range picker index = %v, want invalid_answer error", err)
	}
}

func TestCancelFromAnyQuestion(t *testing.T) {
	cat := catalog.InitialProfile()
	flow := NewFlowController(cat)
	var cancelled int
	flow.Subscribe(func(ev Event) {
		if ev.Kind == EventFlowCancelled {
			cancelled++
		}
	})
	if err := flow.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 5; i++ {
		q, _ := flow.CurrentQuestion()
		if err := flow.Submit(answerFor(q)); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	if err := flow.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if flow.State() != FlowCancelled {
		t.Fatalf("state = %s, want cancelled", flow.State())
	}
	if cancelled != 1 {
		t.Fatalf("cancelled events = %d, want 1", cancelled)
	}
	if err := flow.Submit(RawInput{Kind: models.AnswerYes}); !HasCode(err, ErrorFlowState) {
		t.Fatalf("Submit after cancel = %v, want flow_state error", err)
	}
}

func TestRecordOverwritesAndOrderedFollowsCatalog(t *testing.T) {
	cat := catalog.DailyMetrics()
	set := NewAnswerSet()
	// record in reverse catalog order
	qs := cat.Questions()
	for i := len(qs) - 1; i >= 0; i-- {
		set.Record(models.Answer{QuestionID: qs[i].ID, Value: models.AnswerValue{Kind: models.AnswerNo}})
	}
	set.Record(models.Answer{QuestionID: "hascough", Value: models.AnswerValue{Kind: models.AnswerYes}})
	if set.Len() != cat.Len() {
		t.Fatalf("len = %d, want %d", set.Len(), cat.Len())
	}
	ordered := set.Ordered(cat)
	for i, ans := range ordered {
		if ans.QuestionID != qs[i].ID {
			t.Fatalf("ordered[%d] = %s, want %s", i, ans.QuestionID, qs[i].ID)
		}
	}
	if ans, _ := set.Get("hascough"); ans.Value.Kind != models.AnswerYes {
		t.Fatalf("overwrite lost: hascough = %s", ans.Value.Kind)
	}
}

func TestWireMapRoundTrip(t *testing.T) {
	cat := catalog.InitialProfile()
	flow := NewFlowController(cat)
	if err := flow.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for flow.State() == FlowAwaitingAnswer {
		q, _ := flow.CurrentQuestion()
		in := answerFor(q)
		if q.ID == "pregnant" {
			in = RawInput{Kind: models.AnswerNotApplicable}
		}
		if err := flow.Submit(in); err != nil {
			t.Fatalf("Submit %s: %v", q.ID, err)
		}
	}
	wire := flow.Answers().WireMap(cat)
	if wire["pregnant"] != "notApplicable" {
		t.Fatalf("pregnant token = %q, want notApplicable", wire["pregnant"])
	}
	if wire["age"] != "value-30" {
		t.Fatalf("age token = %q, want value-30", wire["age"])
	}
	for id, tok := range wire {
		value, err := models.ParseAnswerToken(tok)
		if err != nil {
			t.Fatalf("ParseAnswerToken(%q): %v", tok, err)
		}
		orig, _ := flow.Answers().Get(id)
		if value != orig.Value {
			t.Fatalf("round trip for %s: got %+v, want %+v", id, value, orig.Value)
		}
	}
}
