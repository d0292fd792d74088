package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads custom profile definitions from a YAML file. The file holds a
// list of profiles; each entry is validated before use so a broken file is
// rejected as a whole rather than half applied.
//
//	- name: thesis
//	  sources: [pdf_outline, toc_parser, heading_detection]
//	  position_tolerance: 120
//	  min_confidence: 0.55
//	  indicators:
//	    - {feature: page_count, gt: 80, score: 0.7}
func Load(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML profile list.
func Parse(data []byte) ([]Profile, error) {
	var profiles []Profile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return profiles, nil
}
