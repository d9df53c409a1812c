package transactioncloser

type Input struct{}

type Output struct {
	RunID     string `json:"runId"`
	Found     int    `json:"found"`
	Open      int    `json:"open"`
	Published int    `json:"published"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}
