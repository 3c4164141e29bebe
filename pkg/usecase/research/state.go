package research

// State is a step of one AnalyzeQuery call
type State string

const (
	StateIdle         State = "IDLE"
	StateClassifying  State = "CLASSIFYING"
	StateCollecting   State = "COLLECTING"
	StateSynthesizing State = "SYNTHESIZING"
	StateDone         State = "DONE"
	StateFollowUp     State = "FOLLOW_UP"
)

func (s State) String() string { return string(s) }
