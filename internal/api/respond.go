package api

import (
	"encoding/json"

	"ott-server/internal/apperr"
	"ott-server/internal/httpcodec"
	"ott-server/internal/logging"
)

func withSecurityHeaders(h httpcodec.Header) httpcodec.Header {
	for k, v := range securityHeaders {
		h.Set(k, v)
	}
	return h
}

// writeJSON marshals v and writes it with status, including the security
// header set.
func writeJSON(ctx *RequestContext, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		logging.Error("api: marshal response failed: %v", err)
		writeErrorBody(ctx, 500, "internal error")
		return
	}
	headers := withSecurityHeaders(httpcodec.Header{})
	headers.Set("Content-Type", "application/json")
	if err := httpcodec.WriteResponse(ctx.Conn, status, headers, body); err != nil {
		logging.Debug("api: write response failed, closing: %v", err)
	}
}

// writeEmpty writes a bodiless response (e.g. 204) with security headers.
func writeEmpty(ctx *RequestContext, status int, extra httpcodec.Header) {
	headers := withSecurityHeaders(httpcodec.Header{})
	for k, vs := range extra {
		for _, v := range vs {
			headers.Add(k, v)
		}
	}
	if err := httpcodec.WriteResponse(ctx.Conn, status, headers, nil); err != nil {
		logging.Debug("api: write response failed, closing: %v", err)
	}
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// statusOKResponse is the {"status":"ok"} envelope used by endpoints that
// acknowledge a write without returning a resource body.
type statusOKResponse struct {
	Status string `json:"status"`
}

func writeErrorBody(ctx *RequestContext, status int, message string) {
	body, _ := json.Marshal(errorEnvelope{Error: message})
	headers := withSecurityHeaders(httpcodec.Header{})
	headers.Set("Content-Type", "application/json")
	httpcodec.WriteResponse(ctx.Conn, status, headers, body)
}

// writeError maps err onto the structured JSON error envelope, logging
// the underlying cause for Internal errors without leaking it to the
// client.
func writeError(ctx *RequestContext, err error) {
	ae, _ := apperr.As(err)
	if ae.Kind == apperr.Internal {
		logging.Error("api: internal error: %v", err)
		writeErrorBody(ctx, 500, "internal server error")
		return
	}
	writeErrorBody(ctx, ae.Kind.Status(), ae.Message)
}
