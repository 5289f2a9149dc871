package eventbus

import "time"

// SimpleEvent is a lightweight Event implementation carrying a payload.
type SimpleEvent struct {
	EventName string
	Payload   map[string]any
}

func (s SimpleEvent) Name() string { return s.EventName }

// Event names published over the course of one build.
const (
	BuildStarted    = "BuildStarted"
	PlanComputed    = "PlanComputed"
	XformExecuted   = "XformExecuted"
	GenerateWritten = "GenerateWritten"
	BuildCompleted  = "BuildCompleted"
	BuildFailed     = "BuildFailed"
)

// NewBuildStarted builds a BuildStarted event for a given portfolio path.
func NewBuildStarted(projectPath string, at time.Time) SimpleEvent {
	return SimpleEvent{EventName: BuildStarted, Payload: map[string]any{
		"project_path": projectPath,
		"at":           at,
	}}
}

// NewPlanComputed builds a PlanComputed event.
func NewPlanComputed(order []string, valid bool) SimpleEvent {
	return SimpleEvent{EventName: PlanComputed, Payload: map[string]any{
		"order": order,
		"valid": valid,
	}}
}

// NewBuildCompleted builds a BuildCompleted event.
func NewBuildCompleted(manifestID, hash string, filesWritten int) SimpleEvent {
	return SimpleEvent{EventName: BuildCompleted, Payload: map[string]any{
		"manifest_id":   manifestID,
		"hash":          hash,
		"files_written": filesWritten,
	}}
}

// NewBuildFailed builds a BuildFailed event.
func NewBuildFailed(reason string) SimpleEvent {
	return SimpleEvent{EventName: BuildFailed, Payload: map[string]any{"reason": reason}}
}

// NewXformExecuted builds an XformExecuted event for one planned xform
// object's run. errMsg is empty on success.
func NewXformExecuted(name, errMsg string) SimpleEvent {
	return SimpleEvent{EventName: XformExecuted, Payload: map[string]any{
		"xform": name,
		"error": errMsg,
	}}
}

// NewGenerateWritten builds a GenerateWritten event for one file the
// generator service rendered and wrote through the mirror gate.
func NewGenerateWritten(targetFile string) SimpleEvent {
	return SimpleEvent{EventName: GenerateWritten, Payload: map[string]any{"target": targetFile}}
}
