package incompleteprofile

type Input struct {
	ReferenceDate string `json:"referenceDate,omitempty"`
}

type Output struct {
	RunID       string `json:"runId"`
	Found       int    `json:"found"`
	Sent        int    `json:"sent"`
	Failed      int    `json:"failed"`
	Aborted     bool   `json:"aborted"`
	AbortReason string `json:"abortReason,omitempty"`
}
