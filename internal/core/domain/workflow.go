package domain

type WorkflowState string

const (
	StateIdle         WorkflowState = "idle"
	StateFileSelected WorkflowState = "file_selected"
	StateConverting   WorkflowState = "converting"
	StateReady        WorkflowState = "ready"
	StateFailed       WorkflowState = "failed"
)

func (s WorkflowState) StatusText() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateFileSelected:
		return "File selected"
	case StateConverting:
		return "Converting..."
	case StateReady:
		return "Preview Ready"
	case StateFailed:
		return "Error"
	default:
		return string(s)
	}
}

// Snapshot is the read model handed to presentation collaborators.
type Snapshot struct {
	State           WorkflowState  `json:"state"`
	Status          string         `json:"status"`
	Mode            string         `json:"mode"`
	Image           *ImageArtifact `json:"image,omitempty"`
	Preview         string         `json:"preview,omitempty"`
	Presentation    Presentation   `json:"presentation"`
	ExportAvailable bool           `json:"export_available"`
	LastError       string         `json:"last_error,omitempty"`
}
