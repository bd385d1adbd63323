package collector

import "github.com/orbuculum-go/itmtrace/itm"

// FrameHandler receives decoded ITM frames from a Collector and is told
// about every state transition the collection loop makes, successful or
// not. Process returns false to signal the loop should stop dispatching
// (the Collector reports ProcessingFailed and unwinds CollectData).
type FrameHandler interface {
	Process(frame itm.Frame) bool
	StateInd(err Error)
}
