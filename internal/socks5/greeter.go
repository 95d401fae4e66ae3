package socks5

// State is the negotiation state of one client connection.
type State int

const (
	// StateNewConnection expects a method-selection greeting.
	StateNewConnection State = iota
	// StateAuthenticated expects a CONNECT request. It is entered after any
	// greeting, including one that was answered with MethodNoAcceptable.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateNewConnection:
		return "new"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// StepKind says what the caller has to do after [Greeter.Feed].
type StepKind int

const (
	// NeedMore asks for another chunk from the client.
	NeedMore StepKind = iota
	// ImmediateReply carries a method choice to send before reading on.
	ImmediateReply
	// HandshakeComplete carries the target and the reply skeleton.
	HandshakeComplete
)

// Step is the outcome of feeding one chunk.
type Step struct {
	Kind StepKind

	// Reply is set for ImmediateReply. If its method is MethodNoAcceptable
	// the caller should close the connection after sending it.
	Reply ServerChoice

	// Target and ReplyBuf are set for HandshakeComplete. ReplyBuf is the
	// request bytes with the address and port zeroed, ready to be patched
	// with the bound address and sent back.
	Target   Target
	ReplyBuf Request

	// Leftover holds bytes the client sent after the request. They belong to
	// the relayed stream.
	Leftover []byte
}

// Greeter reassembles the server side of the SOCKS5 handshake from arbitrary
// read boundaries. It owns its buffer and does no I/O; a Greeter must not be
// shared between connections.
type Greeter struct {
	state State
	buf   []byte
}

// NewGreeter returns a Greeter waiting for a greeting.
func NewGreeter() *Greeter {
	return &Greeter{state: StateNewConnection}
}

// State returns the current negotiation state.
func (g *Greeter) State() State {
	return g.state
}

// Buffered returns the number of bytes received but not yet consumed.
func (g *Greeter) Buffered() int {
	return len(g.buf)
}

// Feed appends chunk to the buffer and advances the handshake as far as the
// buffered bytes allow. chunk is copied and may be reused by the caller.
//
// Feeding an empty chunk is valid and re-examines bytes that were retained
// after the previous message, for clients that pipeline the greeting and the
// request.
//
// A rejected request is reported as a [ReplyError]; the caller sends
// [MinimalReply] with its code and closes the connection.
func (g *Greeter) Feed(chunk []byte) (Step, error) {
	g.buf = append(g.buf, chunk...)

	switch g.state {
	case StateNewConnection:
		return g.greet()
	default:
		return g.request()
	}
}

func (g *Greeter) greet() (Step, error) {
	if len(g.buf) > 0 && g.buf[0] != Version {
		return Step{}, UnsupportedVersionError(g.buf[0])
	}

	greeting := Greeting(g.buf)
	if !greeting.Complete() {
		return Step{Kind: NeedMore}, nil
	}

	method := byte(MethodNoAcceptable)
	if greeting.Offers(MethodNoAuth) {
		method = MethodNoAuth
	}

	g.buf = append(g.buf[:0], g.buf[greeting.Len():]...)
	g.state = StateAuthenticated

	return Step{Kind: ImmediateReply, Reply: NewServerChoice(method)}, nil
}

func (g *Greeter) request() (Step, error) {
	n, ok := RequestLen(g.buf)
	if !ok {
		return Step{Kind: NeedMore}, nil
	}

	req := Request(g.buf[:n:n])
	target, err := ValidateRequest(req)
	if err != nil {
		return Step{}, err
	}

	clear(req.Addr())
	req.SetPort(0)

	var leftover []byte
	if len(g.buf) > n {
		leftover = g.buf[n:]
	}
	g.buf = nil

	return Step{
		Kind:     HandshakeComplete,
		Target:   target,
		ReplyBuf: req,
		Leftover: leftover,
	}, nil
}
