package script

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a script from a YAML file. Missing sections fall back to the
// built-in script so a file can override just the message pool.
func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("failed to read script file: %w", err)
	}

	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("failed to parse script file: %w", err)
	}

	def := Default()
	if len(s.BroadcastMessages) == 0 {
		s.BroadcastMessages = def.BroadcastMessages
	}
	if len(s.JournalistEvents) == 0 {
		s.JournalistEvents = def.JournalistEvents
	}
	if len(s.StoryPauses) == 0 {
		s.StoryPauses = def.StoryPauses
	}
	return s, nil
}
