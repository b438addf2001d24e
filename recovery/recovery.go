package recovery

// Strategy decides how a component reacts to a malformed construct.
type Strategy interface {
	OnError(ctx Context, err error, location Location) Action
}

// Location identifies where in the document an error was detected.
type Location struct {
	ByteOffset int64
	ObjectNum  int
	ObjectGen  int
	Component  string
}

type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionFix
	ActionWarn
)

type Context interface{ Done() <-chan struct{} }

// Lenient is a strategy that patches over every recoverable defect.
type Lenient struct{}

func (Lenient) OnError(Context, error, Location) Action { return ActionFix }

// Strict is a strategy that fails on the first defect.
type Strict struct{}

func (Strict) OnError(Context, error, Location) Action { return ActionFail }
