package render

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Handle exclusively owns one engine and the session opened on it for the lifetime
// of a single fetch. Close is idempotent: the closed flag is checked-and-set atomically,
// so the success path, the error path and a timeout cleanup may all call it.
type Handle struct {
	engine  Engine
	session Session
	closed  atomic.Bool
	log     *logrus.Entry
}

// NewHandle wraps an engine and its session
func NewHandle(engine Engine, session Session, log *logrus.Entry) *Handle {
	return &Handle{engine: engine, session: session, log: log}
}

// Session returns the owned page session
func (h *Handle) Session() Session {
	return h.session
}

// Closed reports whether Close has already run
func (h *Handle) Closed() bool {
	return h.closed.Load()
}

// Close shuts the engine down on the first call; later calls are no-ops returning nil
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := h.engine.Close(); err != nil {
		h.log.Warnf("Error closing render engine: %v", err)
		return err
	}
	h.log.Debug("Render session closed")
	return nil
}
