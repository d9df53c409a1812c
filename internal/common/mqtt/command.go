package mqtt

import (
	"encoding/json"
	"fmt"

	"parking-jobs/internal/common/validation"
)

const ActionRemoteStopTransaction = "RemoteStopTransaction"

var commandSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["action", "args"],
	"additionalProperties": false,
	"properties": {
		"action": {"type": "string", "enum": ["RemoteStopTransaction"]},
		"args": {
			"type": "object",
			"required": ["transaction_id"],
			"properties": {
				"transaction_id": {"type": "integer", "minimum": 1}
			}
		}
	}
}`)

// Command is the JSON envelope chargers understand.
type Command struct {
	Action string                 `json:"action"`
	Args   map[string]interface{} `json:"args"`
}

func RemoteStop(transactionID int64) Command {
	return Command{
		Action: ActionRemoteStopTransaction,
		Args:   map[string]interface{}{"transaction_id": transactionID},
	}
}

// Encode marshals the command and checks it against the command schema.
func (c Command) Encode() ([]byte, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	res, err := commandSchema.ValidateJSON(payload)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, res
	}
	return payload, nil
}
