package main

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const streamWriteWait = 5 * time.Second

// streamSnapshots pushes a freshly assembled snapshot right away and then on
// every poll interval until ctx is done or a write fails. Each connection
// samples on its own; nothing is shared between streams.
func (s *Server) streamSnapshots(ctx context.Context, conn *websocket.Conn) {
	if err := s.pushSnapshot(ctx, conn); err != nil {
		return
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.pushSnapshot(ctx, conn); err != nil {
				s.logger.Debug("ws stream closed", "error", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) pushSnapshot(ctx context.Context, conn *websocket.Conn) error {
	var msg any
	snapshot, err := s.assembler.Assemble(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Error("assembling snapshot", "request_id", requestID(ctx), "error", err)
		msg = ErrorResponse{Error: snapshotErrorMessage}
	} else {
		msg = newSystemResponse(snapshot)
	}

	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(msg)
}
