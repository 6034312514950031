package wallet

// State is the stage of the most recent popup interaction.
type State int

const (
	StateIdle State = iota
	StateAwaitingPopup
	StatePopupVisible
	StateActionPerformed
	StatePopupClosed
	// StateCloseTimedOut means the popup was still open after the close wait.
	// It is not a failure.
	StateCloseTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingPopup:
		return "AwaitingPopup"
	case StatePopupVisible:
		return "PopupVisible"
	case StateActionPerformed:
		return "ActionPerformed"
	case StatePopupClosed:
		return "PopupClosed"
	case StateCloseTimedOut:
		return "CloseTimedOut"
	default:
		return "Unknown"
	}
}
