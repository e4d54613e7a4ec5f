package store

// CloneRecord returns a deep copy of record. Nested maps and slices produced
// by encoding/json are copied; other values are shared.
func CloneRecord(record Record) Record {
	if record == nil {
		return nil
	}
	return cloneValue(record).(map[string]any)
}

// CloneRecords deep-copies every record in records.
func CloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = CloneRecord(r)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	case []map[string]any:
		s := make([]map[string]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val).(map[string]any)
		}
		return s
	default:
		return v
	}
}
