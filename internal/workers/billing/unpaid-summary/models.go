package unpaidsummary

type Input struct {
	ReferenceDate string `json:"referenceDate,omitempty"`
	Force         bool   `json:"force,omitempty"`
}

type Output struct {
	RunID     string `json:"runId"`
	Date      string `json:"date"`
	Month     string `json:"month"`
	Due       bool   `json:"due"`
	Unpaid    int    `json:"unpaid"`
	Listed    int    `json:"listed"`
	Missing   int    `json:"missing"`
	Carparks  int    `json:"carparks"`
	EmailSent bool   `json:"emailSent"`
}

// Row is one customer line in the staff table.
type Row struct {
	UserID        int64
	RentalID      int64
	Name          string
	License       string
	Mobile        string
	Email         string
	Rate          string
	PaymentMethod string
}

// Section groups the rows of one carpark.
type Section struct {
	CarparkName string
	Rows        []Row
}
