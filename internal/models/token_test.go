package models

import "testing"

func TestAnswerTokenRoundTrip(t *testing.T) {
	values := []AnswerValue{
		{Kind: AnswerYes},
		{Kind: AnswerNo},
		{Kind: AnswerDontKnow},
		{Kind: AnswerNotApplicable},
		{Kind: AnswerRatherNotAnswer},
		{Kind: AnswerNumeric, Numeric: 30},
		{Kind: AnswerNumeric, Numeric: 0},
	}
	for _, v := range values {
		got, err := ParseAnswerToken(v.Token())
		if err != nil {
			t.Fatalf("ParseAnswerToken(%q): %v", v.Token(), err)
		}
		if got != v {
			t.Fatalf("round trip %q: got %+v, want %+v", v.Token(), got, v)
		}
	}
}

func TestAnswerTokenStrings(t *testing.T) {
	if tok := (AnswerValue{Kind: AnswerNumeric, Numeric: 42}).Token(); tok != "value-42" {
		t.Fatalf("numeric token = %q, want value-42", tok)
	}
	if tok := (AnswerValue{Kind: AnswerDontKnow}).Token(); tok != "dontKnow" {
		t.Fatalf("dontKnow token = %q", tok)
	}
}

func TestParseAnswerTokenRejectsUnknown(t *testing.T) {
	for _, tok := range []string{"maybe", "value-", "value-x", "continue", ""} {
		if _, err := ParseAnswerToken(tok); err == nil {
			t.Fatalf("ParseAnswerToken(%q) should fail", tok)
		}
	}
}
