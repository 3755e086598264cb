package dto

// ExamSessionRequest creates or replaces an exam session.
type ExamSessionRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
	Location  string `json:"location" validate:"required,max=255"`
	Capacity  int    `json:"capacity" validate:"min=0"`
}

// CreatePositionRequest registers a position and its numbering code.
type CreatePositionRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Code string `json:"code" validate:"required,numeric,min=1,max=2"`
}
