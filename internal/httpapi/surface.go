package httpapi

import "github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"

// httpSurface collects controller callbacks for a single request.  The
// handler renders the response from the returned outcome; only the
// notification summary is needed from here.
type httpSurface struct {
	summary *types.NotificationSummary
}

func (h *httpSurface) OnLoaded(types.Entity) {}
func (h *httpSurface) OnRejected([]types.Violation) {}
func (h *httpSurface) OnCommitted(types.Entity) {}
func (h *httpSurface) OnAborted(string) {}

func (h *httpSurface) OnNotificationSummary(sent, failed int) {
	h.summary = &types.NotificationSummary{Sent: sent, Failed: failed}
}
