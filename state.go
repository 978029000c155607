package nge

// State is one entry of the application's state stack. The App calls
// OnStart when the state becomes active and OnStop when it is removed;
// OnPause/OnResume bracket the time another state sits on top of it.
type State interface {
	OnStart(cmd *Commands) error
	OnStop(cmd *Commands)
	OnPause(cmd *Commands)
	OnResume(cmd *Commands)
	Update(cmd *Commands) Trans
	HandleEvent(cmd *Commands, event Event) Trans
}

type transKind int

const (
	transNone transKind = iota
	transQuit
	transPush
	transPop
	transSwitch
)

// Trans is the transition a State asks for after an update or event.
type Trans struct {
	kind  transKind
	state State
}

func TransNone() Trans              { return Trans{kind: transNone} }
func TransQuit() Trans              { return Trans{kind: transQuit} }
func TransPop() Trans               { return Trans{kind: transPop} }
func TransPush(state State) Trans   { return Trans{kind: transPush, state: state} }
func TransSwitch(state State) Trans { return Trans{kind: transSwitch, state: state} }
func (t Trans) IsNone() bool        { return t.kind == transNone }
func (t Trans) IsQuit() bool        { return t.kind == transQuit }

func (t Trans) String() string {
	switch t.kind {
	case transQuit:
		return "Quit"
	case transPush:
		return "Push"
	case transPop:
		return "Pop"
	case transSwitch:
		return "Switch"
	default:
		return "None"
	}
}

// EmptyState implements State with no behaviour; embed it to override only
// the callbacks a state cares about.
type EmptyState struct{}

func (EmptyState) OnStart(cmd *Commands) error                  { return nil }
func (EmptyState) OnStop(cmd *Commands)                         {}
func (EmptyState) OnPause(cmd *Commands)                        {}
func (EmptyState) OnResume(cmd *Commands)                       {}
func (EmptyState) Update(cmd *Commands) Trans                   { return TransNone() }
func (EmptyState) HandleEvent(cmd *Commands, event Event) Trans { return TransNone() }
