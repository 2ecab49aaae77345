package request

type Record struct {
	SurveyNumber string         `json:"survey_number" binding:"required"`
	Section      string         `json:"section" binding:"required"`
	Data         map[string]any `json:"data" binding:"required"`
	OfficerId    string         `json:"officer_id"`
	ProjectId    string         `json:"project_id"`
	Remarks      string         `json:"remarks"`
}

type BulkVerify struct {
	ProjectId     string   `json:"project_id"`
	SurveyNumbers []string `json:"survey_numbers"`
}
