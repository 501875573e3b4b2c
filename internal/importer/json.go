// Package importer decodes solver input from files for offline solving.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"

	"github.com/noah-isme/sma-timetable/internal/timetable"
)

// LoadJSON reads a solver input document from path.
func LoadJSON(path string) (timetable.Input, error) {
	file, err := os.Open(path)
	if err != nil {
		return timetable.Input{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return DecodeJSON(file)
}

// DecodeJSON decodes a solver input document. Unknown keys are rejected so typos surface early.
func DecodeJSON(r io.Reader) (timetable.Input, error) {
	var raw map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return timetable.Input{}, fmt.Errorf("parse input json: %w", err)
	}

	var input timetable.Input
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &input,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return timetable.Input{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return timetable.Input{}, fmt.Errorf("decode input: %w", err)
	}
	return input, nil
}
