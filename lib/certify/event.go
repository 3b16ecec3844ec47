// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package certify

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Event describes a finished training run.
type Event struct {
	Model   string `json:"model"`
	Version string `json:"version"`

	// Language defaults to dna.DefaultLanguage.
	Language string `json:"language,omitempty"`

	// Categories are the dataset categories. They feed both the
	// compact DNA and the directory name's dataset tags.
	Categories []string `json:"dataset_categories"`

	// Datasets are the dataset files or directories the model was
	// trained on. Relative paths are resolved against the
	// certifier's DatasetRoot and recorded as given.
	Datasets []string `json:"datasets"`

	FinalWeights map[string]float64 `json:"final_weights"`

	// WeightsFile is the serialized model, when there is one. Its
	// hash names the directory; without it the hash of FinalWeights
	// is used.
	WeightsFile string `json:"weights_file,omitempty"`

	TrainingConfig json.RawMessage `json:"training_config,omitempty"`

	// Timestamp defaults to the certifier's clock.
	Timestamp string `json:"timestamp,omitempty"`
}

// ParseEvent decodes a JSONC event.
func ParseEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(jsonc.ToJSON(data), &event); err != nil {
		return nil, fmt.Errorf("parsing training event: %w", err)
	}
	return &event, nil
}

// LoadEvent reads a JSONC event file.
func LoadEvent(path string) (*Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	event, err := ParseEvent(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return event, nil
}
