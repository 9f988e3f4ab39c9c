package state

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session stores conversation state and collected answers for a user.
type Session struct {
	State    State
	TempData map[string]interface{}
}

// Manager orchestrates user sessions and FSM state transitions.
type Manager interface {
	Get(userID int64) *Session
	SetTemp(userID int64, key string, value interface{})
	ClearTemp(userID int64, key string)
	GetTemp(userID int64, key string) (interface{}, bool)
	GetTempString(userID int64, key string) (string, bool)
	Clear(userID int64)

	// Dialog state
	SetState(userID int64, st State)
	GetState(userID int64) State
	HasState(userID int64) bool
	ClearState(userID int64)

	InProgress(userID int64) bool
}
