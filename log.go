package composer

import "github.com/sirupsen/logrus"

// trace is the solver's structured tracer: leveled, field-carrying log
// entries, so a caller can turn solve tracing on with a log level instead
// of a boolean flag, and filter/aggregate it like any other service log.
type trace struct {
	log *logrus.Entry
}

// newTrace wraps l (nil means use logrus's standard logger) into a trace
// bound to a solve.
func newTrace(l *logrus.Logger) *trace {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &trace{log: logrus.NewEntry(l)}
}

func (t *trace) decided(lit Literal, level int, cause int) {
	t.log.WithFields(logrus.Fields{
		"literal": int(lit),
		"level":   level,
		"cause":   cause,
	}).Debug("decision")
}

func (t *trace) conflict(ruleID int) {
	t.log.WithField("rule_id", ruleID).Debug("conflict")
}

func (t *trace) learned(ruleID int, backtrackLevel int) {
	t.log.WithFields(logrus.Fields{
		"rule_id":         ruleID,
		"backtrack_level": backtrackLevel,
	}).Debug("learned clause")
}

func (t *trace) done(ok bool, attempts int) {
	t.log.WithFields(logrus.Fields{
		"sat":      ok,
		"attempts": attempts,
	}).Debug("solve finished")
}
