package responder

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/shank50/supportbotai/internal/domain"
)

// firstObjectSpan returns the first balanced {...} span of s. Braces inside
// JSON strings do not count toward the balance.
func firstObjectSpan(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end, ok := matchBrace(s, start); ok {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// parsedReply is the validated content of a model reply. Fields that were
// missing or had the wrong type are left at their zero value.
type parsedReply struct {
	message          string
	shouldEscalate   bool
	escalationReason string
	matchedFAQID     string
	suggestedActions []string
}

var (
	errNoObject    = errors.New("no JSON object in reply")
	errInvalidJSON = errors.New("reply object is not valid JSON")
	errNotObject   = errors.New("reply JSON is not an object")
)

// parseReply validates raw model output against the reply contract. It
// fails only when no JSON object can be recovered at all.
func parseReply(raw string) (parsedReply, error) {
	span, ok := firstObjectSpan(raw)
	if !ok {
		return parsedReply{}, errNoObject
	}
	if !gjson.Valid(span) {
		return parsedReply{}, errInvalidJSON
	}
	obj := gjson.Parse(span)
	if !obj.IsObject() {
		return parsedReply{}, errNotObject
	}

	var p parsedReply
	if v := obj.Get("message"); v.Type == gjson.String {
		p.message = strings.TrimSpace(v.Str)
	}
	p.shouldEscalate = obj.Get("shouldEscalate").Type == gjson.True
	if v := obj.Get("escalationReason"); v.Type == gjson.String {
		p.escalationReason = strings.TrimSpace(v.Str)
	}
	if v := obj.Get("matchedFAQId"); v.Type == gjson.String {
		p.matchedFAQID = strings.TrimSpace(v.Str)
	}
	p.suggestedActions = []string{}
	if v := obj.Get("suggestedActions"); v.IsArray() {
		v.ForEach(func(_, item gjson.Result) bool {
			if item.Type == gjson.String {
				if s := strings.TrimSpace(item.Str); s != "" {
					p.suggestedActions = append(p.suggestedActions, s)
				}
			}
			return true
		})
	}
	return p, nil
}

// verdictFrom projects a parsed reply onto a verdict, resolving the
// matched FAQ against the corpus.
func verdictFrom(p parsedReply, lookup func(string) (*domain.FAQ, bool)) domain.Verdict {
	v := domain.Verdict{
		Message:          p.message,
		ShouldEscalate:   p.shouldEscalate,
		EscalationReason: p.escalationReason,
		SuggestedActions: p.suggestedActions,
		Outcome:          domain.VerdictOutcomeOK,
	}
	if v.Message == "" {
		v.Message = DefaultMessage
	}
	if p.matchedFAQID != "" {
		if f, ok := lookup(p.matchedFAQID); ok {
			v.MatchedFAQ = f
		}
	}
	return v
}
