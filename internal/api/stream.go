package api

import (
	"io"

	"github.com/gin-gonic/gin"
)

// streamEvents pushes spill lifecycle events (started, site_hit,
// resolved) to the client over SSE. The connection ends when the client
// goes away or the broadcaster shuts down.
func (h *Handler) streamEvents(c *gin.Context) {
	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		}
	})
}
