package models

// CourseRecord is one row of the gradebook table.
//
// Course is always non-empty. Every other field is optional and uses nil as
// its absent marker, which serializes to JSON null.
type CourseRecord struct {
	Course          string       `json:"course"`
	StartDate       *string      `json:"startDate"`
	EndDate         *string      `json:"endDate"`
	ScorePercent    *float64     `json:"scorePercent"`
	ProgressPercent *float64     `json:"progressPercent"`
	Assignments     *Assignments `json:"assignments"`
}

// Assignments is the "X of Y" breakdown read from the progress tooltip.
type Assignments struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Left      int `json:"left"`
}

// NewAssignments derives Left from total and completed.
func NewAssignments(completed, total int) *Assignments {
	return &Assignments{
		Completed: completed,
		Total:     total,
		Left:      total - completed,
	}
}

// clone returns a deep copy so callers never share pointers with an Outcome.
func (r CourseRecord) clone() CourseRecord {
	out := CourseRecord{Course: r.Course}
	if r.StartDate != nil {
		v := *r.StartDate
		out.StartDate = &v
	}
	if r.EndDate != nil {
		v := *r.EndDate
		out.EndDate = &v
	}
	if r.ScorePercent != nil {
		v := *r.ScorePercent
		out.ScorePercent = &v
	}
	if r.ProgressPercent != nil {
		v := *r.ProgressPercent
		out.ProgressPercent = &v
	}
	if r.Assignments != nil {
		v := *r.Assignments
		out.Assignments = &v
	}
	return out
}

func cloneRecords(in []CourseRecord) []CourseRecord {
	out := make([]CourseRecord, len(in))
	for i, r := range in {
		out[i] = r.clone()
	}
	return out
}
