package manager

import "loadgrid/internal/session"

// managerHandler implements session.Handler for client-manager
// sessions. The receive loop already enforces the "shutdown is the
// only accepted unsolicited message" contract (spec §4.7) by closing
// the connection on any other message for RoleManager; this handler
// only needs to clean up the registry on disconnect.
type managerHandler struct {
	session.NoopHandler
	reg *registry
}

func (h *managerHandler) ConnectionLost(s *session.Session) {
	h.reg.remove(s)
}
