package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/certlab/studyguide/internal/study"
)

// chatRequest is one inbound chat turn on the websocket channel.
type chatRequest struct {
	Text string `json:"text"`
}

// chatResponse carries the appended model entry back to the client, or a
// suppressed flag when the turn was dropped (empty input or a turn
// already in flight).
type chatResponse struct {
	Entry      *study.ChatEntry `json:"entry,omitempty"`
	Suppressed bool             `json:"suppressed,omitempty"`
}

// handleChatWS serves the chat transcript over a websocket. Each received
// message runs one chat turn; the reply is written back on the same
// connection. On connect the existing transcript is replayed so a
// reconnecting client catches up.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "server error")

	ctx := r.Context()

	if err := wsjson.Write(ctx, conn, s.Controller.ChatTranscript()); err != nil {
		return
	}

	for {
		var req chatRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			var closeErr websocket.CloseError
			if !errors.As(err, &closeErr) && ctx.Err() == nil {
				slog.Debug("websocket read ended", "error", err)
			}
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}

		entry, ok := s.Controller.AskChat(ctx, req.Text)
		resp := chatResponse{Suppressed: !ok}
		if ok {
			resp.Entry = &entry
		}
		if err := wsjson.Write(ctx, conn, resp); err != nil {
			return
		}
	}
}
