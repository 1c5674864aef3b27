package projector

// Quarterback projections split the non-recent weight evenly.
type Quarterback struct{ weighted }

// NewQuarterback creates an untrained QB projector
func NewQuarterback() *Quarterback {
	return &Quarterback{weighted{position: "QB", weights: Weights{Recent: 0.4, Season: 0.3, Career: 0.3}}}
}

// RunningBack projections weight recent form most heavily.
type RunningBack struct{ weighted }

// NewRunningBack creates an untrained RB projector
func NewRunningBack() *RunningBack {
	return &RunningBack{weighted{position: "RB", weights: Weights{Recent: 0.5, Season: 0.3, Career: 0.2}}}
}

// WideReceiver projections.
type WideReceiver struct{ weighted }

// NewWideReceiver creates an untrained WR projector
func NewWideReceiver() *WideReceiver {
	return &WideReceiver{weighted{position: "WR", weights: Weights{Recent: 0.4, Season: 0.35, Career: 0.25}}}
}

// TightEnd projections share the receiver weighting.
type TightEnd struct{ weighted }

// NewTightEnd creates an untrained TE projector
func NewTightEnd() *TightEnd {
	return &TightEnd{weighted{position: "TE", weights: Weights{Recent: 0.4, Season: 0.35, Career: 0.25}}}
}
