package testserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/opsbook/opsbook/internal/api"
)

type contextKey string

const userContextKey contextKey = "user"

func withUser(ctx context.Context, u *user) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

func userFromContext(ctx context.Context) *user {
	u, _ := ctx.Value(userContextKey).(*user)
	return u
}

// writeJSON writes v with the given status. A nil v writes no body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes a {"detail": "..."} error body.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, api.ErrorResponse{Detail: detail})
}

type validationItem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// writeValidation writes a request validation failure with a detail list.
func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, api.ErrorResponse{Detail: []validationItem{
		{Loc: []string{"body", field}, Msg: msg, Type: "value_error"},
	}})
}

// decodeRequestBody decodes JSON request body into the provided value.
// If decoding fails, writes an error response and returns false.
func decodeRequestBody(w http.ResponseWriter, req *http.Request, v any) bool {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, api.ErrorResponse{Detail: []validationItem{
			{Loc: []string{"body"}, Msg: err.Error(), Type: "json_invalid"},
		}})
		return false
	}
	return true
}

func urlParam(req *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(req, name))
}

func newAPIKey() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
