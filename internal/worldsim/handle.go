// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.

package worldsim

const requestBacklog = 128

// envelope pairs a Request with the one-shot channel its sender will
// block on for a Result.
type envelope struct {
	req   Request
	reply chan Result
}

// Handle is a lightweight, shareable reference to a running World: a
// buffered channel to its request loop. Copies of a Handle (it is a
// small struct wrapping a channel, not a pointer) all talk to the same
// world, the way cloning an mpsc Sender does.
type Handle struct {
	requests chan envelope
	closed   <-chan struct{}
}

func newHandle() (Handle, <-chan envelope, chan<- struct{}) {
	reqCh := make(chan envelope, requestBacklog)
	closedCh := make(chan struct{})
	return Handle{requests: reqCh, closed: closedCh}, reqCh, closedCh
}

// Send submits req and blocks for its Result (or for the world's request
// loop to have shut down, in which case it returns a world-fatal error
// without ever enqueueing).
func (h Handle) Send(req Request) Result {
	reply := make(chan Result, 1)

	select {
	case h.requests <- envelope{req: req, reply: reply}:
	case <-h.closed:
		return Result{Err: errWorldShutdown}
	}

	select {
	case r := <-reply:
		return r
	case <-h.closed:
		return Result{Err: errWorldShutdown}
	}
}

// Tick drives fuel manual ticks and waits for them all to complete.
func (h Handle) Tick(fuel uint64) Result {
	return h.Send(Request{Kind: ReqTick, Fuel: fuel})
}

func (h Handle) Pause() Result    { return h.Send(Request{Kind: ReqPause}) }
func (h Handle) Resume() Result   { return h.Send(Request{Kind: ReqResume}) }
func (h Handle) Shutdown() Result { return h.Send(Request{Kind: ReqShutdown}) }

func (h Handle) Rename(name string) Result {
	return h.Send(Request{Kind: ReqRename, Name: name})
}
