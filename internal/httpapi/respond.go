package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

// respond writes v as protobuf when the client asked for it, JSON
// otherwise.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if !wantsProtobuf(r) {
		writeJSON(w, status, v)
		return
	}
	msg, err := toStruct(v)
	if err != nil {
		s.logger.Printf("protobuf encode error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeProto(w, status, msg)
}

func decodeSubmitRequest(r *http.Request) (types.SubmitRequest, error) {
	if isProtobuf(r) {
		return submitRequestFromProto(r)
	}
	var req types.SubmitRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return types.SubmitRequest{}, err
	}
	return req, nil
}
