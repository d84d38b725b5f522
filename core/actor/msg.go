package actor

import "github.com/g-andrade/vaktari/core/reflector"

// MsgTyper lets a message choose the name it is routed by. Without it the
// fully qualified Go type name is used.
type MsgTyper interface{ MsgType() string }

func msgTypeFor[T any]() string {
	var z T
	if mt, ok := any(z).(MsgTyper); ok {
		return mt.MsgType()
	}
	return reflector.TypeInfoFor[T]().Name
}

func msgTypeOf(x any) string {
	if mt, ok := x.(MsgTyper); ok {
		return mt.MsgType()
	}
	return reflector.TypeInfoOf(x).Name
}
