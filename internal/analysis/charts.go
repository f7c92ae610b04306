package analysis

// Dataset is a labelled series in the shape Chart.js expects.
type Dataset struct {
	Label  string    `json:"label"`
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

type Charts struct {
	// StudentAverages is drawn as a bar chart; students without data are left out.
	StudentAverages Dataset `json:"student_averages"`
	// SubjectAverages is drawn as a radar chart; subjects without data plot as 0.
	SubjectAverages Dataset `json:"subject_averages"`
}

func BuildCharts(r Report) Charts {
	c := Charts{
		StudentAverages: Dataset{Label: "General average (%)", Labels: []string{}, Data: []float64{}},
		SubjectAverages: Dataset{Label: "Subject average (%)", Labels: []string{}, Data: []float64{}},
	}
	for _, s := range r.StudentSummaries {
		if s.GeneralAverage == nil {
			continue
		}
		c.StudentAverages.Labels = append(c.StudentAverages.Labels, s.Student.FullName())
		c.StudentAverages.Data = append(c.StudentAverages.Data, *s.GeneralAverage)
	}
	for _, sa := range r.SubjectAverages {
		v := 0.0
		if sa.PercentAverage != nil {
			v = *sa.PercentAverage
		}
		c.SubjectAverages.Labels = append(c.SubjectAverages.Labels, sa.Subject.Name)
		c.SubjectAverages.Data = append(c.SubjectAverages.Data, v)
	}
	return c
}
