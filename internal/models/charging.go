// internal/models/charging.go
package models

import (
	"database/sql"
)

// EV transaction statuses that are already closed from the platform's side.
const (
	EVStatusRemoteStop = "remote_stop"
	EVStatusFinished   = "finished"
)

type EVTransaction struct {
	ID            int64        `json:"id" db:"id"`
	ChargerID     int64        `json:"chargerId" db:"charger_id"`
	Status        string       `json:"status" db:"status"`
	EndTime       sql.NullTime `json:"endTime" db:"end_time"`
	TargetEndTime sql.NullTime `json:"targetEndTime" db:"target_end_time"`
	ActualEndTime sql.NullTime `json:"actualEndTime" db:"actual_end_time"`
}

// InProgress reports whether the charger has not yet reported the end.
func (t EVTransaction) InProgress() bool {
	return !t.ActualEndTime.Valid
}

type EVCharger struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
