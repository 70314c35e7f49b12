package neural

// IODescriptor describes a brain input or output for UI display.
type IODescriptor struct {
	ID          string
	Label       string
	Description string
	Min, Max    float64
}

// BrainInputDescriptors returns metadata for the sensor inputs, in the order
// the round feeds them.
func BrainInputDescriptors() []IODescriptor {
	return []IODescriptor{
		{ID: "y", Label: "Y", Description: "Bird top edge", Min: 0, Max: 1080},
		{ID: "to_upper", Label: "Upper", Description: "|y - upper column bottom|", Min: 0, Max: 1080},
		{ID: "to_lower", Label: "Lower", Description: "|y - lower column top|", Min: 0, Max: 1080},
		{ID: "to_pipe", Label: "Pipe", Description: "|x - pipe left edge|", Min: 0, Max: 900},
	}
}

// BrainOutputDescriptors returns metadata for the outputs.
func BrainOutputDescriptors() []IODescriptor {
	return []IODescriptor{
		{ID: "jump", Label: "Jump", Description: "Jump when above threshold", Min: 0, Max: 1},
	}
}

// InputByID returns the descriptor for a specific input by ID.
func InputByID(id string) (IODescriptor, bool) {
	for _, desc := range BrainInputDescriptors() {
		if desc.ID == id {
			return desc, true
		}
	}
	return IODescriptor{}, false
}
