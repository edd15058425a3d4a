// Package notify carries user-facing notices (the toasts of the web admin) from the
// core components to whatever surface is showing them.
package notify

import "sync"

// Notifier shows short success and error notices to the user
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Nop drops every notice
type Nop struct{}

func (Nop) Success(string) {}
func (Nop) Error(string)   {}

// Kind tells success and error notices apart
type Kind int

const (
	KindSuccess Kind = iota
	KindError
)

// Notice is one recorded notification
type Notice struct {
	Kind    Kind
	Message string
}

// Recorder keeps every notice in order. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Success(msg string) { r.add(KindSuccess, msg) }
func (r *Recorder) Error(msg string)   { r.add(KindError, msg) }

func (r *Recorder) add(kind Kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Kind: kind, Message: msg})
}

// Notices returns a copy of the recorded notices
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Last returns the most recent notice
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Has reports whether a notice with this kind and message was recorded
func (r *Recorder) Has(kind Kind, msg string) bool {
	for _, n := range r.Notices() {
		if n.Kind == kind && n.Message == msg {
			return true
		}
	}
	return false
}

// Func adapts a single function to Notifier
type Func func(kind Kind, msg string)

func (f Func) Success(msg string) { f(KindSuccess, msg) }
func (f Func) Error(msg string)   { f(KindError, msg) }

// Chan forwards notices into a channel, dropping them when it is full
type Chan chan Notice

func (c Chan) Success(msg string) { c.send(KindSuccess, msg) }
func (c Chan) Error(msg string)   { c.send(KindError, msg) }

func (c Chan) send(kind Kind, msg string) {
	select {
	case c <- Notice{Kind: kind, Message: msg}:
	default:
	}
}
