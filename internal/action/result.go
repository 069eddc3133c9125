package action

// State is the lifecycle of one action:
//
//	Pending -> Running -> VerifiedSuccess | UnverifiedSuccess | Failed
//	click_on_text: Failed -> Recovering -> VerifiedSuccess | Failed
type State int

const (
	Pending State = iota
	Running
	Recovering
	VerifiedSuccess
	UnverifiedSuccess
	Failed
)

var stateNames = [...]string{
	Pending:           "pending",
	Running:           "running",
	Recovering:        "recovering",
	VerifiedSuccess:   "verified_success",
	UnverifiedSuccess: "unverified_success",
	Failed:            "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) Terminal() bool {
	return s == VerifiedSuccess || s == UnverifiedSuccess || s == Failed
}

type Result struct {
	ID        string
	Action    Kind
	Parameter string
	State     State
	Err       error
	Recovered bool     // success came from the recovery round
	Steps     []Result // MultiStep only, in execution order
}

func (r Result) Succeeded() bool {
	return r.State == VerifiedSuccess || r.State == UnverifiedSuccess
}

func (r Result) Verified() bool { return r.State == VerifiedSuccess }
