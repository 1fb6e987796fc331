package protocol

import (
	"context"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
)

// RPCMessage represents a single RPC message
type RPCMessage struct {
	Method   string
	Request  *jrpc2.Request
	Response *jrpc2.Response
	Time     time.Time
}

// RPCTracker records the requests and responses seen by a jrpc2 server. It
// is installed as the server's RPCLog.
type RPCTracker struct {
	mu sync.Mutex

	messages     []RPCMessage
	knownMethods map[string]string
	notify       chan struct{}
}

var _ jrpc2.RPCLogger = (*RPCTracker)(nil)

func NewRPCTracker() *RPCTracker {
	return &RPCTracker{
		knownMethods: make(map[string]string),
		notify:       make(chan struct{}),
	}
}

func (t *RPCTracker) LogRequest(ctx context.Context, req *jrpc2.Request) {
	t.mu.Lock()
	t.knownMethods[req.ID()] = req.Method()
	t.mu.Unlock()
	t.track(RPCMessage{Method: req.Method(), Request: req})
}

func (t *RPCTracker) LogResponse(ctx context.Context, resp *jrpc2.Response) {
	t.mu.Lock()
	method := t.knownMethods[resp.ID()]
	t.mu.Unlock()
	t.track(RPCMessage{Method: method, Response: resp})
}

func (t *RPCTracker) track(msg RPCMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg.Time = time.Now()
	t.messages = append(t.messages, msg)

	close(t.notify)
	t.notify = make(chan struct{})
}

// Messages returns a copy of every tracked message.
func (t *RPCTracker) Messages() []RPCMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]RPCMessage{}, t.messages...)
}

// WaitForMethod blocks until a request for method has been tracked or the
// timeout expires.
func (t *RPCTracker) WaitForMethod(method string, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		t.mu.Lock()
		for _, msg := range t.messages {
			if msg.Request != nil && msg.Method == method {
				t.mu.Unlock()
				return true
			}
		}
		wait := t.notify
		t.mu.Unlock()

		select {
		case <-wait:
		case <-timer.C:
			return false
		}
	}
}
