package runtime

import (
	"math"
	"sort"
)

// Frame is a single name to value mapping.
type Frame map[string]Value

// Environment is an ordered list of frames, innermost first. Lookups scan
// outward; writes always land in the innermost frame.
type Environment struct {
	frames []Frame
}

// NewEnvironment creates an environment holding the initial globals.
func NewEnvironment() *Environment {
	return &Environment{frames: []Frame{initialFrame()}}
}

func initialFrame() Frame {
	return Frame{
		"Infinity": NumberValue{Val: math.Inf(1)},
		"NaN":      NumberValue{Val: math.NaN()},
	}
}

// GetVar returns the innermost binding for name, or Never when absent.
func (e *Environment) GetVar(name string) Value {
	if v, ok := e.Lookup(name); ok {
		return v
	}
	return Never
}

// Lookup reports whether name is bound in any frame.
func (e *Environment) Lookup(name string) (Value, bool) {
	for _, frame := range e.frames {
		if v, ok := frame[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// SetVar binds name in the innermost frame, shadowing outer bindings.
func (e *Environment) SetVar(name string, value Value) {
	e.frames[0][name] = value
}

// DefineGlobal binds name in the outermost frame.
func (e *Environment) DefineGlobal(name string, value Value) {
	e.frames[len(e.frames)-1][name] = value
}

// Extend returns a child environment with a fresh innermost frame. Outer
// frames are shared, so later definitions in them stay visible.
func (e *Environment) Extend() *Environment {
	frames := make([]Frame, 0, len(e.frames)+1)
	frames = append(frames, Frame{})
	frames = append(frames, e.frames...)
	return &Environment{frames: frames}
}

// Frames exposes the frames, innermost first.
func (e *Environment) Frames() []Frame {
	return e.frames
}

// Depth is the number of frames.
func (e *Environment) Depth() int {
	return len(e.frames)
}

// Keys returns every visible name in sorted order.
func (e *Environment) Keys() []string {
	seen := make(map[string]struct{})
	for _, frame := range e.frames {
		for k := range frame {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
