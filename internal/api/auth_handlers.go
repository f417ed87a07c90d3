package api

import (
	"encoding/json"
	"time"

	"ott-server/internal/apperr"
	"ott-server/internal/auth"
	"ott-server/internal/httpcodec"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type userResponse struct {
	Username string `json:"username"`
}

type meResponse struct {
	Username string `json:"username"`
	UserID   int64  `json:"userId"`
}

func decodeJSONBody(ctx *RequestContext, v interface{}) error {
	if len(ctx.Req.Body) == 0 {
		return apperr.BadRequestf("missing request body")
	}
	if err := json.Unmarshal(ctx.Req.Body, v); err != nil {
		return apperr.BadRequestf("malformed JSON body")
	}
	return nil
}

func handleLogin(ctx *RequestContext) {
	var body loginRequest
	if err := decodeJSONBody(ctx, &body); err != nil {
		writeError(ctx, err)
		return
	}

	result, err := ctx.Server.Auth.Login(body.Username, body.Password)
	if err != nil {
		writeError(ctx, err)
		return
	}
	respondWithSession(ctx, result)
}

func handleRegister(ctx *RequestContext) {
	var body registerRequest
	if err := decodeJSONBody(ctx, &body); err != nil {
		writeError(ctx, err)
		return
	}

	result, err := ctx.Server.Auth.Register(body.Username, body.Password, body.ConfirmPassword)
	if err != nil {
		writeError(ctx, err)
		return
	}
	respondWithSession(ctx, result)
}

// respondWithSession sets the session cookie for result and returns the
// {username} envelope with a 200.
func respondWithSession(ctx *RequestContext, result auth.Result) {
	ttl := time.Until(result.ExpiresAt)
	if ttl < 0 {
		ttl = 0
	}
	cookie := auth.SessionCookie(result.Token, ttl)

	headers := withSecurityHeaders(httpcodec.Header{})
	headers.Set("Content-Type", "application/json")
	headers.Add("Set-Cookie", cookie.String())

	body, _ := json.Marshal(userResponse{Username: result.Username})
	if err := httpcodec.WriteResponse(ctx.Conn, 200, headers, body); err != nil {
		return
	}
}

func handleLogout(ctx *RequestContext) {
	token := auth.ParseSessionToken(ctx.Req.Headers.Get("Cookie"))
	_ = ctx.Server.Auth.Logout(token)

	extra := httpcodec.Header{}
	extra.Add("Set-Cookie", auth.ExpiredCookie().String())
	writeEmpty(ctx, 204, extra)
}

func handleMe(ctx *RequestContext) {
	if !ctx.IsAuth {
		writeError(ctx, apperr.Unauthorizedf("not authenticated"))
		return
	}
	writeJSON(ctx, 200, meResponse{Username: ctx.Auth.Username, UserID: ctx.Auth.UserID})
}
