package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// User identifies the logged-in operator as reported by the backend.
type User struct {
	UserID   int    `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Credentials pairs an access token with the user it was issued to.
type Credentials struct {
	Token string
	User  User
}

// envelope is the wrapped success shape of the auth endpoints.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		AccessToken string `json:"accessToken"`
		User        User   `json:"user"`
	} `json:"data"`
}

// loginResponse also carries the legacy direct-field login shape still
// served by older backend deployments.
type loginResponse struct {
	envelope
	LegacyUserName string `json:"User_Name"`
	LegacyUserID   int    `json:"User_ID"`
}

// maxErrorBody caps how much of an error response body is read when
// extracting a server message.
const maxErrorBody = 64 << 10

// serverMessage extracts the "message" field from a response body and
// restores the body so the response can still be returned to the caller.
func serverMessage(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) != nil {
		return ""
	}
	return body.Message
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}
