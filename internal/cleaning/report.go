package cleaning

import "encoding/json"

// ClassShare is one class of a target column with its share of the rows.
type ClassShare struct {
	Class string  `json:"class"`
	Count int     `json:"count"`
	Ratio float64 `json:"ratio"`
}

// ImbalanceRecord describes the binary class balancing step. A record with
// Detected false serializes as the string "not detected".
type ImbalanceRecord struct {
	Detected      bool
	Action        string
	MajorityClass string
	MajorityRatio float64
	BeforeRows    int
	AfterRows     int
	Distribution  []ClassShare
}

func (r ImbalanceRecord) MarshalJSON() ([]byte, error) {
	if !r.Detected {
		return json.Marshal("not detected")
	}
	return json.Marshal(struct {
		Action        string       `json:"action"`
		MajorityClass string       `json:"majority_class"`
		MajorityRatio float64      `json:"majority_ratio"`
		BeforeRows    int          `json:"before_rows"`
		AfterRows     int          `json:"after_rows"`
		Distribution  []ClassShare `json:"distribution"`
	}{r.Action, r.MajorityClass, r.MajorityRatio, r.BeforeRows, r.AfterRows, r.Distribution})
}

// Report records what an advanced clean changed.
type Report struct {
	MissingValuesHandled bool             `json:"missing_values_handled"`
	DuplicatesRemoved    int              `json:"duplicates_removed"`
	ProblemTypeActions   []string         `json:"problem_type_actions"`
	ClassImbalance       *ImbalanceRecord `json:"class_imbalance,omitempty"`
	ClassDistribution    []ClassShare     `json:"class_distribution,omitempty"`
}
