package domain

// ReportOutcome records what happened to one requested report type during a
// run: whether its CSV made it into the archive, whether an enriched copy was
// added, and the one-line reason when something went wrong.
type ReportOutcome struct {
	Type     ReportType
	Member   string
	Enhanced bool
	Reason   string
}

// Failed reports whether this report type ended in an error.
func (o ReportOutcome) Failed() bool { return o.Reason != "" }

// RunSummary aggregates the per-report-type outcomes of a run. Failures are
// never silent: every requested type shows up here exactly once.
type RunSummary struct {
	Archive  string
	Outcomes []ReportOutcome
}

// OutputMembers counts the CSV members the run produced (originals found in
// the bundle plus enhanced copies).
func (s RunSummary) OutputMembers() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Member != "" {
			n++
		}
		if o.Enhanced {
			n++
		}
	}
	return n
}

// HasFailures reports whether any report type failed.
func (s RunSummary) HasFailures() bool {
	for _, o := range s.Outcomes {
		if o.Failed() {
			return true
		}
	}
	return false
}
