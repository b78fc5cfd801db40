package request

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/mcoot/searchgame/internal/model"
)

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (r *RegisterRequest) decodeForm(form url.Values) error {
	r.Name = form.Get("name")
	r.Phone = form.Get("phone")
	return nil
}

// CompleteRequest is the request body for completing a game session.
// TotalTime is in hundredths of a second; nil means it was not sent.
type CompleteRequest struct {
	SessionID string   `json:"sessionId"`
	TotalTime *float64 `json:"totalTime"`
}

func (r *CompleteRequest) decodeForm(form url.Values) error {
	r.SessionID = form.Get("sessionId")
	if raw := strings.TrimSpace(form.Get("totalTime")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.InvalidArgument("totalTime must be a number")
		}
		r.TotalTime = &v
	}
	return nil
}
