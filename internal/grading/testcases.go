package grading

import (
	"encoding/json"
	"fmt"
)

// ParseTestCases decodes the stored test case list. Each entry needs an
// "expected" or "output" string; "input" is optional. Malformed entries are
// dropped and counted rather than failing the whole list.
func ParseTestCases(raw []byte) (cases []TestCase, dropped int, err error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, 0, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, 0, fmt.Errorf("decode test cases: %w", err)
	}

	for _, entry := range entries {
		tc, ok := parseTestCase(entry)
		if !ok {
			dropped++
			continue
		}
		cases = append(cases, tc)
	}
	return cases, dropped, nil
}

func parseTestCase(entry json.RawMessage) (TestCase, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
		return TestCase{}, false
	}

	expected, ok := stringField(fields, "expected")
	if !ok {
		if expected, ok = stringField(fields, "output"); !ok {
			return TestCase{}, false
		}
	}

	input := ""
	if _, present := fields["input"]; present {
		if input, ok = stringField(fields, "input"); !ok {
			return TestCase{}, false
		}
	}

	return TestCase{Input: input, Expected: expected}, true
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// EncodeTestCases is the inverse of ParseTestCases.
func EncodeTestCases(cases []TestCase) ([]byte, error) {
	if cases == nil {
		cases = []TestCase{}
	}
	return json.Marshal(cases)
}
