package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// textID decodes an authored id that may be a JSON string or an integer.
type textID string

func (id *textID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = textID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or integer: %w", err)
	}
	if _, err := n.Int64(); err != nil {
		return fmt.Errorf("id %s is not an integer", n)
	}
	*id = textID(n.String())
	return nil
}

func (q *Question) UnmarshalJSON(data []byte) error {
	type plain Question
	aux := struct {
		*plain
		ID textID `json:"id"`
	}{plain: (*plain)(q)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	q.ID = string(aux.ID)
	return nil
}

func (o *Option) UnmarshalJSON(data []byte) error {
	type plain Option
	aux := struct {
		*plain
		ID textID `json:"id"`
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	o.ID = string(aux.ID)
	return nil
}
