package signal

import "github.com/avoronin/Huddle/internal/core"

func (ctl *Controller) handlePing(cl *client) {
	ctl.sendEvent(cl.conn, core.EventPong, nil)
}
