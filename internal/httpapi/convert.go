package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

// ── Submit ───────────────────────────────────────────────────────────────────

// submitRequestFromProto reads a google.protobuf.Struct of the form
// {"fields": {...}, "confirm": bool}.  Struct fields are unordered, so the
// candidate's fields come back sorted by name.
func submitRequestFromProto(r *http.Request) (types.SubmitRequest, error) {
	var msg structpb.Struct
	if err := readProto(r, &msg); err != nil {
		return types.SubmitRequest{}, err
	}

	req := types.SubmitRequest{Confirm: msg.GetFields()["confirm"].GetBoolValue()}

	fv, ok := msg.GetFields()["fields"]
	if !ok {
		return req, nil
	}
	fs := fv.GetStructValue()
	if fs == nil {
		return types.SubmitRequest{}, errors.New("fields must be a struct")
	}
	req.Fields = fieldsFromStruct(fs)
	return req, nil
}

func fieldsFromStruct(s *structpb.Struct) types.Fields {
	names := make([]string, 0, len(s.GetFields()))
	for name := range s.GetFields() {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(types.Fields, 0, len(names))
	for _, name := range names {
		out = append(out, types.Field{Name: name, Value: s.GetFields()[name].AsInterface()})
	}
	return out
}

// ── Responses ────────────────────────────────────────────────────────────────

// toStruct converts any JSON-encodable response into a Struct by way of its
// JSON form, so both encodings carry the same keys.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
