package handlers

import "encoding/json"

// decodeInto round-trips raw through encoding/json into dst, turning a
// map[string]interface{} payload into a typed struct.
func decodeInto(raw map[string]interface{}, dst interface{}) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
