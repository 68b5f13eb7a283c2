package types

// ExtractionResult is the structured vacancy data produced by AI enrichment
// of a posting's detail content.
type ExtractionResult struct {
	Seniority        string   `json:"seniority,omitempty"`
	EmploymentType   string   `json:"employment_type,omitempty"`
	RemotePolicy     string   `json:"remote_policy,omitempty"`
	Technologies     []string `json:"technologies,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	Requirements     []string `json:"requirements,omitempty"`
	Benefits         []string `json:"benefits,omitempty"`
	SalaryMin        int      `json:"salary_min,omitempty"`
	SalaryMax        int      `json:"salary_max,omitempty"`
}

// IsEmpty reports whether the extraction carries no usable data.
func (r *ExtractionResult) IsEmpty() bool {
	if r == nil {
		return true
	}
	return len(r.Technologies) == 0 &&
		len(r.Responsibilities) == 0 &&
		len(r.Requirements) == 0 &&
		len(r.Benefits) == 0 &&
		r.Seniority == "" && r.EmploymentType == "" && r.RemotePolicy == ""
}

// Source kinds for analyzed company content.
const (
	SourceKindCompanySite = "company-website"
	SourceKindJobBoard    = "job-board"
)

// CompanyAttributes is the structured company data produced by AI analysis
// of a company profile or website. It is the input to the scoring engine.
type CompanyAttributes struct {
	Name          string   `json:"name"`
	Industry      string   `json:"industry,omitempty"`
	Size          string   `json:"size,omitempty"` // startup, small, medium, large, enterprise
	WorkModel     string   `json:"work_model,omitempty"`
	FoundedYear   int      `json:"founded_year,omitempty"`
	EmployeeCount int      `json:"employee_count,omitempty"`
	Technologies  []string `json:"technologies,omitempty"`
	Benefits      []string `json:"benefits,omitempty"`
	Values        []string `json:"values,omitempty"`
	Description   string   `json:"description,omitempty"`

	// SourceKind describes where the analyzed content came from; it feeds the
	// confidence calculation. One of "company-website", "job-board", or "".
	SourceKind string `json:"source_kind,omitempty"`
}

// IsEmpty reports whether the analysis carries no usable data.
func (a *CompanyAttributes) IsEmpty() bool {
	if a == nil {
		return true
	}
	return a.Name == "" && a.Industry == "" && a.Size == "" &&
		len(a.Technologies) == 0 && len(a.Benefits) == 0 && len(a.Values) == 0 &&
		a.Description == ""
}
