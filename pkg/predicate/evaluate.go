package predicate

// TargetLine is the line of sanitized output a predicate is applied to.
// Line 0 is the command as echoed by the remote shell; the answer follows it.
const TargetLine = 1

// Evaluate applies p to the target line of lines (TargetLine, trimmed of
// surrounding whitespace). It returns MalformedOutputError when there is no
// such line and PredicateError when p cannot test the value.
func Evaluate(lines []string, p Predicate) (bool, error) {
	return EvaluateLine(lines, TargetLine, p)
}

// EvaluateLine is Evaluate with an explicit line index.
func EvaluateLine(lines []string, index int, p Predicate) (bool, error) {
	if index < 0 || index >= len(lines) {
		return false, &MalformedOutputError{Lines: lines, Want: index + 1}
	}
	return p.Test(trimValue(lines[index]))
}

// Target returns the trimmed target line, or "" when it is missing.
func Target(lines []string, index int) string {
	if index < 0 || index >= len(lines) {
		return ""
	}
	return trimValue(lines[index])
}
