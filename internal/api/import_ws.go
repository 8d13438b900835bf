package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/andinotravel/payops/internal/importer"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Local-only API: the socket and the API key already gate access.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ImportEvent is one message on the import progress stream.
type ImportEvent struct {
	Type      string           `json:"type"` // progress, done or error
	Done      int              `json:"done,omitempty"`
	Total     int              `json:"total,omitempty"`
	Result    *importer.Result `json:"result,omitempty"`
	BatchID   string           `json:"batch_id,omitempty"`
	Succeeded int              `json:"succeeded,omitempty"`
	Failed    int              `json:"failed,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// handleImportWS runs an import over a websocket, streaming one progress
// event per processed row. The client sends a single ImportRequest and
// reads events until a done or error event arrives.
func (s *Server) handleImportWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerFromRequest(r)
	}
	if err := s.auth.Verify(token); err != nil {
		http.Error(w, `{"error":"invalid or expired session token"}`, http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var req ImportRequest
	if err := conn.ReadJSON(&req); err != nil {
		conn.WriteJSON(ImportEvent{Type: "error", Error: "invalid import request: " + err.Error()})
		return
	}
	if len(req.Rows) == 0 {
		conn.WriteJSON(ImportEvent{Type: "error", Error: "no rows to import"})
		return
	}

	exec, err := s.getExecutor()
	if err != nil {
		conn.WriteJSON(ImportEvent{Type: "error", Error: err.Error()})
		return
	}

	results := importer.Run(r.Context(), exec, req.Rows, func(done, total int, result importer.Result) {
		if err := conn.WriteJSON(ImportEvent{
			Type:   "progress",
			Done:   done,
			Total:  total,
			Result: &result,
		}); err != nil {
			slog.Warn("Failed to stream import progress", "error", err)
		}
	})

	resp, err := s.recordImport(r, req.Rows, results)
	if err != nil {
		conn.WriteJSON(ImportEvent{Type: "error", Error: err.Error()})
		return
	}
	conn.WriteJSON(ImportEvent{
		Type:      "done",
		Total:     resp.Total,
		BatchID:   resp.BatchID,
		Succeeded: resp.Succeeded,
		Failed:    resp.Failed,
	})
}

func bearerFromRequest(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
