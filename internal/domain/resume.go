package domain

// ResumeRecord is the structured output produced from a resume document
type ResumeRecord struct {
	Summary    string           `json:"summary"`
	Skills     []string         `json:"skills"`
	Experience []WorkExperience `json:"experience"`
	Education  []Education      `json:"education"`
	Projects   []Project        `json:"projects"`
}

// WorkExperience is a single position held
type WorkExperience struct {
	Company     string  `json:"company"`
	Role        string  `json:"role"`
	StartDate   *string `json:"start_date,omitempty"`
	EndDate     *string `json:"end_date,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Education is a single degree or course of study
type Education struct {
	Degree      string  `json:"degree"`
	Institution string  `json:"institution"`
	Years       *string `json:"years,omitempty"`
}

// Project is a personal or professional project
type Project struct {
	Name            string   `json:"name"`
	Description     *string  `json:"description,omitempty"`
	TechnologyStack []string `json:"technology_stack"`
}

// Normalize replaces nil sequences with empty ones so they serialize as []
func (r *ResumeRecord) Normalize() {
	if r.Skills == nil {
		r.Skills = []string{}
	}
	if r.Experience == nil {
		r.Experience = []WorkExperience{}
	}
	if r.Education == nil {
		r.Education = []Education{}
	}
	if r.Projects == nil {
		r.Projects = []Project{}
	}
	for i := range r.Projects {
		if r.Projects[i].TechnologyStack == nil {
			r.Projects[i].TechnologyStack = []string{}
		}
	}
}
