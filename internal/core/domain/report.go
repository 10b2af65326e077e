package domain

// SuiteReport aggregates the records of one execution test run.
type SuiteReport struct {
	Records []TestRunRecord
}

// Add appends a record in discovery order.
func (r *SuiteReport) Add(record TestRunRecord) {
	r.Records = append(r.Records, record)
}

// Total returns the number of executed cases.
func (r *SuiteReport) Total() int {
	return len(r.Records)
}

// Failed returns the failing records in discovery order.
func (r *SuiteReport) Failed() []TestRunRecord {
	var failed []TestRunRecord
	for _, record := range r.Records {
		if !record.Passed() {
			failed = append(failed, record)
		}
	}
	return failed
}

// Passed returns the number of passing cases.
func (r *SuiteReport) Passed() int {
	return r.Total() - len(r.Failed())
}

// Percent returns the floored pass percentage. An empty suite reports 0.
func (r *SuiteReport) Percent() int {
	total := r.Total()
	if total == 0 {
		return 0
	}
	return r.Passed() * 100 / total
}

// OK reports whether every case passed.
func (r *SuiteReport) OK() bool {
	return len(r.Failed()) == 0
}
