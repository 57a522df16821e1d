package models

import (
	"fmt"
	"strconv"
	"strings"
)

const numericTokenPrefix = "value-"

// Token returns the wire token for an answer value, e.g. "yes", "dontKnow"
// or "value-30" for numeric answers.
func (v AnswerValue) Token() string {
	if v.Kind == AnswerNumeric {
		return numericTokenPrefix + strconv.Itoa(v.Numeric)
	}
	return string(v.Kind)
}

// ParseAnswerToken resolves a wire token back into an answer value.
func ParseAnswerToken(tok string) (AnswerValue, error) {
	if n, ok := strings.CutPrefix(tok, numericTokenPrefix); ok {
		val, err := strconv.Atoi(n)
		if err != nil {
			return AnswerValue{}, fmt.Errorf("parse numeric answer token %q: %w", tok, err)
		}
		return AnswerValue{Kind: AnswerNumeric, Numeric: val}, nil
	}
	switch AnswerKind(tok) {
	case AnswerYes, AnswerNo, AnswerDontKnow, AnswerNotApplicable, AnswerRatherNotAnswer:
		return AnswerValue{Kind: AnswerKind(tok)}, nil
	}
	return AnswerValue{}, fmt.Errorf("unknown answer token %q", tok)
}
