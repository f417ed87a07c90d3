package api

import (
	"strconv"

	"ott-server/internal/apperr"
	"ott-server/internal/store"
)

const completionEpsilonSeconds = 5

type historyEntryResponse struct {
	VideoID      int64   `json:"videoId"`
	Title        string  `json:"title"`
	ThumbnailURL string  `json:"thumbnailUrl"`
	StreamURL    string  `json:"streamUrl"`
	Position     float64 `json:"position"`
	UpdatedAt    int64   `json:"updatedAt"`
}

type historyListResponse struct {
	History []historyEntryResponse `json:"history"`
}

func handleListHistory(ctx *RequestContext) {
	if !ctx.IsAuth {
		writeError(ctx, apperr.Unauthorizedf("not authenticated"))
		return
	}

	var entries []historyEntryResponse
	err := ctx.Server.Store.ListWatchHistory(ctx.Auth.UserID, func(e store.HistoryEntry) {
		id := formatID(e.VideoID)
		entries = append(entries, historyEntryResponse{
			VideoID:      e.VideoID,
			Title:        e.Title,
			ThumbnailURL: "/api/videos/" + id + "/thumbnail",
			StreamURL:    "/api/videos/" + id + "/stream",
			Position:     e.Position,
			UpdatedAt:    e.UpdatedAt.Unix(),
		})
	})
	if err != nil {
		writeError(ctx, err)
		return
	}

	writeJSON(ctx, 200, historyListResponse{History: entries})
}

type updateHistoryRequest struct {
	Position float64 `json:"position"`
}

func handleUpdateHistory(ctx *RequestContext) {
	if !ctx.IsAuth {
		writeError(ctx, apperr.Unauthorizedf("not authenticated"))
		return
	}

	videoID, err := parseVideoID(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}

	var body updateHistoryRequest
	if err := decodeJSONBody(ctx, &body); err != nil {
		writeError(ctx, err)
		return
	}
	if body.Position < 0 {
		writeError(ctx, apperr.BadRequestf("position must be >= 0"))
		return
	}

	v, err := ctx.Server.Store.GetVideoByID(videoID)
	if err != nil {
		writeError(ctx, err)
		return
	}

	position := body.Position
	if v.Duration != nil && position >= float64(*v.Duration)-completionEpsilonSeconds {
		position = 0
	}

	if err := ctx.Server.Store.UpdateWatchHistory(ctx.Auth.UserID, videoID, position); err != nil {
		writeError(ctx, err)
		return
	}

	writeJSON(ctx, 200, statusOKResponse{Status: "ok"})
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
