package ipc

// Commands understood by a running session owner.
const (
	CommandStatus = "status"
	CommandToggle = "toggle"
	CommandStop   = "stop"
	CommandCancel = "cancel"
	CommandPause  = "pause"
)

// Forwardable reports whether command is served by an active owner socket.
func Forwardable(command string) bool {
	switch command {
	case CommandStatus, CommandToggle, CommandStop, CommandCancel, CommandPause:
		return true
	default:
		return false
	}
}

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Paused  bool   `json:"paused,omitempty"`
	Mode    string `json:"mode,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
