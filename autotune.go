package autotune

import "strconv"

// ScoreUnit is the score of a perfect match (SWR 1.0). Scores are SWR scaled by ScoreUnit.
const ScoreUnit Score = 100000

// MaxScore is reported when the forward reading is too small or not larger than the reverse reading
const MaxScore Score = 99 * ScoreUnit

// Score is the "badness" of a match: larger is worse and it is never negative
type Score uint32

// SWR returns the standing-wave ratio represented by the score
func (s Score) SWR() float64 {
	return float64(s) / float64(ScoreUnit)
}

func (s Score) String() string {
	if s >= MaxScore {
		return "--.--"
	}
	return strconv.FormatFloat(s.SWR(), 'f', 2, 64)
}

// ScoreFromSWR converts an SWR ratio such as 1.2 to a Score
func ScoreFromSWR(swr float64) Score {
	if swr >= MaxScore.SWR() {
		return MaxScore
	}
	if swr < 1 {
		swr = 1
	}
	return Score(swr*float64(ScoreUnit) + 0.5)
}

// Topology selects which side of the inductor the capacitor bank sits on
type Topology int

const (
	// TopologyLowZ puts the capacitors at the input, for loads below the line impedance
	TopologyLowZ Topology = iota
	// TopologyHighZ puts the capacitors at the output, for loads above the line impedance
	TopologyHighZ
)

func (t Topology) String() string {
	if t == TopologyHighZ {
		return "HiZ"
	}
	return "LoZ"
}

// Other returns the opposite topology
func (t Topology) Other() Topology {
	if t == TopologyHighZ {
		return TopologyLowZ
	}
	return TopologyHighZ
}

// RelayConfig is one setting of the relay-switched L-network. L and C are the sums of the
// binary-weighted relay bits asserted on each bank.
type RelayConfig struct {
	L        uint16
	C        uint16
	Topology Topology
}

// Bypass is the configuration with every relay released
var Bypass = RelayConfig{}

// Distance is the Manhattan distance between two configurations in (L, C) index space
func (rc RelayConfig) Distance(other RelayConfig) int {
	return absDiff(rc.L, other.L) + absDiff(rc.C, other.C)
}

func (rc RelayConfig) String() string {
	return "L" + strconv.Itoa(int(rc.L)) + " C" + strconv.Itoa(int(rc.C)) + " " + rc.Topology.String()
}

func absDiff(a, b uint16) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// Gain is the level of the switchable SWR bridge amplifiers
type Gain int

const (
	GainLow Gain = iota
	GainHigh
)

func (g Gain) String() string {
	if g == GainHigh {
		return "Hi"
	}
	return "Lo"
}

// Sample is one averaged SWR reading
type Sample struct {
	Forward uint16
	Reverse uint16
	Score   Score
}

// State is the state of the tuning controller
type State int

const (
	StateIdle State = iota
	StateCoarseSearching
	StateFineSearching
	StateVerifying
	StateMatched
	StateBestEffort
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCoarseSearching:
		return "Coarse"
	case StateFineSearching:
		return "Fine"
	case StateVerifying:
		return "Verify"
	case StateMatched:
		return "Matched"
	case StateBestEffort:
		return "BestEffort"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// ParseState is the inverse of State.String
func ParseState(s string) (State, bool) {
	for st := StateIdle; st <= StateAborted; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return StateIdle, false
}

// InProgress is true for the states of a running tuning cycle
func (s State) InProgress() bool {
	return s == StateCoarseSearching || s == StateFineSearching || s == StateVerifying
}

// Outcome is how a tuning cycle ended
type Outcome int

const (
	OutcomeMatched Outcome = iota
	OutcomeBestEffort
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "Matched"
	case OutcomeBestEffort:
		return "BestEffort"
	default:
		return "Aborted"
	}
}

// State returns the terminal controller state for the outcome
func (o Outcome) State() State {
	switch o {
	case OutcomeMatched:
		return StateMatched
	case OutcomeBestEffort:
		return StateBestEffort
	default:
		return StateAborted
	}
}

// Result is the terminal outcome of a tuning cycle. Config is the configuration left actuated.
type Result struct {
	Outcome Outcome
	Config  RelayConfig
	Score   Score
	Samples int
}

// Status is the record pushed to the status display after every step
type Status struct {
	State   State
	Config  RelayConfig
	Score   Score
	Gain    Gain
	Forward uint16
}

// StatusSink receives status updates from the controller
type StatusSink interface {
	Update(Status)
}

// Button identifies an input that produces press events
type Button int

const (
	ButtonNone Button = iota
	ButtonTune
	ButtonLUp
	ButtonLDown
	ButtonCUp
	ButtonCDown
	// ButtonTopology has no physical key and is only produced by the serial console
	ButtonTopology
)

func (b Button) String() string {
	switch b {
	case ButtonTune:
		return "Tune"
	case ButtonLUp:
		return "L+"
	case ButtonLDown:
		return "L-"
	case ButtonCUp:
		return "C+"
	case ButtonCDown:
		return "C-"
	case ButtonTopology:
		return "Topology"
	default:
		return "None"
	}
}

// Press is the kind of a debounced button press
type Press int

const (
	ShortPress Press = iota
	LongPress
)

func (p Press) String() string {
	if p == LongPress {
		return "Long"
	}
	return "Short"
}

// Event is a debounced press of a button
type Event struct {
	Button Button
	Press  Press
}

func (e Event) String() string {
	return e.Button.String() + "/" + e.Press.String()
}
