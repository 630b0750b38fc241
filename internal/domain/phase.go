package domain

// Phase is the top-level step of a draft session.
type Phase string

const (
	PhaseHome         Phase = "HOME"
	PhaseInput        Phase = "INPUT"
	PhaseOrderSetting Phase = "ORDER_SETTING"
	PhaseDrafting     Phase = "DRAFTING"
	PhaseLobby        Phase = "LOBBY"
)

// IsValid checks if a phase is one of the known steps.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseHome, PhaseInput, PhaseOrderSetting, PhaseDrafting, PhaseLobby:
		return true
	}
	return false
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}
