package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Ladder instruction grammar. The pipeline is not a ladder interpreter: it
// only recognizes the three mnemonics that encode state transitions.
//
//	XIC(tag)  examine-if-closed, at the start of a rung: the source state
//	OTL(tag)  output latch, anywhere in the rung: a target state
//	NOP()     placeholder rung, skipped entirely
var (
	xicLeadRegex = regexp.MustCompile(`^XIC\(([^)]+)\)`)
	otlRegex     = regexp.MustCompile(`OTL\(([^)]+)\)`)
	otuRegex     = regexp.MustCompile(`OTU\(([^)]+)\)`)

	trailingDigitsRegex = regexp.MustCompile(`\.(\d+)$`)
)

// StateNumber extracts the state id from a tag-member reference: the digit
// run after the final dot. "_A28_PH.ST[0].14" -> 14. References with no
// trailing digit run carry no state id.
func StateNumber(operand string) (int, bool) {
	m := trailingDigitsRegex.FindStringSubmatch(strings.TrimSpace(operand))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseRungLogic extracts the transition contribution of one rung's logic
// text: at most one source state (from a leading XIC) and every latch
// target in scan order. Duplicate targets within a rung are preserved here;
// the graph builder dedupes.
//
// NOP() rungs and rungs with no logic text contribute nothing; both are
// normal, not errors.
func ParseRungLogic(text string) (source int, hasSource bool, targets []int) {
	logic := strings.TrimSpace(text)
	if logic == "" || strings.HasPrefix(logic, "NOP()") {
		return 0, false, nil
	}

	if m := xicLeadRegex.FindStringSubmatch(logic); m != nil {
		if n, ok := StateNumber(m[1]); ok {
			source = n
			hasSource = true
		}
	}

	for _, m := range otlRegex.FindAllStringSubmatch(logic, -1) {
		if n, ok := StateNumber(m[1]); ok {
			targets = append(targets, n)
		}
	}

	return source, hasSource, targets
}

// leadingXICOperand returns the operand of a rung-leading XIC instruction,
// used by tag auto-detection.
func leadingXICOperand(text string) (string, bool) {
	m := xicLeadRegex.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	return m[1], true
}
