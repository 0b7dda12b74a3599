package value

// Host is a Go value injected by the embedder.
type Host interface {
	Type() string
	String() string
}

// FreezableHost is a Host that can produce an immutable counterpart. Hosts
// that do not implement it make freezing fail.
type FreezableHost interface {
	Host
	Freeze() (Host, error)
}

// HostObject is the heap object behind KindHost values.
type HostObject struct {
	Value  Host
	frozen bool
}
