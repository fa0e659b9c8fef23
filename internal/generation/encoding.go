package generation

import "encoding/json"

func defaultEncodeJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func defaultDecodeJSON(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
