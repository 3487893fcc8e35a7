package backend

import (
	"encoding/json"
	"fmt"
)

func encodeLockRecord(rec lockRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("backend: encoding lock record: %w", err)
	}
	return data, nil
}

func decodeLockRecord(data []byte, rec *lockRecord) error {
	return json.Unmarshal(data, rec)
}
