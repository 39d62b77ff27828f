package dto

import "vectora-backend/internal/cleaning"

type UploadResponse struct {
	Message string   `json:"message"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
	Version uint64   `json:"version"`
}

type AdvancedCleanRequest struct {
	Target      string `form:"target"`
	ProblemType string `form:"problem_type"`
}

type AdvancedCleanResponse struct {
	Message  string           `json:"message"`
	Summary  string           `json:"summary"`
	Report   *cleaning.Report `json:"report"`
	Download string           `json:"download"`
	Version  uint64           `json:"version"`
}
