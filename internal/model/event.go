package model

// Local host to UI event names.
const (
	EventTaskUpdated             = "task-updated"
	EventInstanceVerifyingStatus = "instance-verifying-status"
)

// TaskUpdatedEvent is the payload of the task updated local event.
type TaskUpdatedEvent struct {
	Task TaskRecord `json:"task"`
}

// VerifyingStatusEvent is the payload of the instance verifying status local event.
type VerifyingStatusEvent struct {
	InstanceID string `json:"instanceId"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// Commands that start long-running operations on the host.
const (
	CommandUpdateInstance = "update_instance"
	CommandVerifyInstance = "verify_instance"
	CommandUpdateModpack  = "update_modpack"
)

// CommandArgs are the arguments of a start-operation command.
type CommandArgs struct {
	InstanceID string `json:"instanceId,omitempty"`
	ModpackID  string `json:"modpackId,omitempty"`
	TaskID     string `json:"taskId,omitempty"`
}

// CommandAck is the acknowledgement of a started operation.
type CommandAck struct {
	TaskID string `json:"taskId"`
}
