package protocol

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// MarshalJSON marshals v to JSON (wrapper for encoding/json.Marshal).
func MarshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// UnmarshalJSON unmarshals data into v (wrapper for encoding/json.Unmarshal).
func UnmarshalJSON(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// IntFields are the request fields carried as integers.
var IntFields = []string{"partition_number", "partition_index", "number_of_partitions", "partition_count", "offset"}

// QueryToJSON turns query parameters into a JSON object so GET requests can be validated and
// decoded like bodies. Fields listed in IntFields become numbers when they parse; repeated keys
// keep the first value.
func QueryToJSON(q url.Values) ([]byte, error) {
	doc := make(map[string]any, len(q))
	for k, vs := range q {
		if len(vs) == 0 {
			continue
		}
		if isIntField(k) {
			if n, err := strconv.Atoi(vs[0]); err == nil {
				doc[k] = n
				continue
			}
		}
		doc[k] = vs[0]
	}
	return json.Marshal(doc)
}

func isIntField(k string) bool {
	for _, f := range IntFields {
		if f == k {
			return true
		}
	}
	return false
}
