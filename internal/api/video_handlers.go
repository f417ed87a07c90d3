package api

import (
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ott-server/internal/apperr"
	"ott-server/internal/httpcodec"
	"ott-server/internal/logging"
	"ott-server/internal/rangefile"
	"ott-server/internal/store"
)

const (
	defaultLimit = 12
	maxLimit     = 50
)

type videoResponse struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Filename      string  `json:"filename"`
	Description   *string `json:"description"`
	Duration      *int    `json:"duration"`
	ThumbnailURL  string  `json:"thumbnailUrl"`
	StreamURL     string  `json:"streamUrl"`
	ResumeSeconds float64 `json:"resumeSeconds"`
}

type videoListResponse struct {
	Videos     []videoResponse `json:"videos"`
	NextCursor int             `json:"nextCursor"`
	HasMore    bool            `json:"hasMore"`
}

// parseQueryParams is the query parser: no URL decoding happens at request
// parse time, so percent-decoding of keys and values happens here, once,
// before the params map is populated. A value that fails to decode (a
// malformed escape) is kept as-is rather than dropped.
func parseQueryParams(query string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		key := queryUnescape(kv[0])
		value := ""
		if len(kv) == 2 {
			value = queryUnescape(kv[1])
		}
		params[key] = value
	}
	return params
}

func queryUnescape(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

func handleListVideos(ctx *RequestContext) {
	if !ctx.IsAuth {
		writeError(ctx, apperr.Unauthorizedf("not authenticated"))
		return
	}

	if err := ctx.Server.Catalog.Sync(); err != nil {
		logging.Warn("api: catalog sync before listing failed: %v", err)
	}

	params := parseQueryParams(ctx.Req.Query)

	limit := defaultLimit
	if raw, ok := params["limit"]; ok && raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	cursor := 0
	if raw, ok := params["cursor"]; ok && raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			cursor = n
		}
	}

	search := params["q"]

	// The emit callback runs with the store mutex held, so it only buffers
	// rows; resume positions are looked up after iteration ends.
	var rows []store.Video
	hasMore, err := ctx.Server.Store.QueryVideos(search, limit, cursor, func(v store.Video) {
		rows = append(rows, v)
	})
	if err != nil {
		writeError(ctx, err)
		return
	}

	var videos []videoResponse
	for _, v := range rows {
		resume, _ := ctx.Server.Store.GetResumePosition(ctx.Auth.UserID, v.ID)
		videos = append(videos, videoToResponse(v, resume))
	}

	writeJSON(ctx, 200, videoListResponse{
		Videos:     videos,
		NextCursor: cursor + len(videos),
		HasMore:    hasMore,
	})
}

func videoToResponse(v store.Video, resume float64) videoResponse {
	id := strconv.FormatInt(v.ID, 10)
	return videoResponse{
		ID:            v.ID,
		Title:         v.Title,
		Filename:      v.Filename,
		Description:   v.Description,
		Duration:      v.Duration,
		ThumbnailURL:  "/api/videos/" + id + "/thumbnail",
		StreamURL:     "/api/videos/" + id + "/stream",
		ResumeSeconds: resume,
	}
}

func parseVideoID(ctx *RequestContext) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return 0, apperr.BadRequestf("invalid video id")
	}
	return id, nil
}

func handleStream(ctx *RequestContext) {
	if !ctx.IsAuth {
		writeError(ctx, apperr.Unauthorizedf("not authenticated"))
		return
	}

	videoID, err := parseVideoID(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}

	v, err := ctx.Server.Store.GetVideoByID(videoID)
	if err != nil {
		writeError(ctx, err)
		return
	}

	path := filepath.Join(ctx.Server.MediaDir, v.Filename)
	f, err := os.Open(path)
	if err != nil {
		writeError(ctx, apperr.NotFoundf("video file not found"))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(ctx, apperr.Internalf(err, "stat video file"))
		return
	}
	fileSize := info.Size()

	rng, err := rangefile.Parse(ctx.Req.Headers.Get("Range"), fileSize)
	if err != nil {
		writeError(ctx, err)
		return
	}

	headers := withSecurityHeaders(httpcodec.Header{})
	headers.Set("Content-Type", "video/mp4")
	headers.Set("Accept-Ranges", "bytes")

	if rng.IsFull() {
		httpcodec.WriteFileResponse(ctx.Conn, 200, headers, f, fileSize)
		return
	}

	headers.Set("Content-Range", "bytes "+strconv.FormatInt(rng.Start, 10)+"-"+strconv.FormatInt(rng.End, 10)+"/"+strconv.FormatInt(fileSize, 10))
	if _, err := f.Seek(rng.Start, 0); err != nil {
		writeError(ctx, apperr.Internalf(err, "seek video file"))
		return
	}
	httpcodec.WriteFileResponse(ctx.Conn, 206, headers, f, rng.Length())
}

func handleThumbnail(ctx *RequestContext) {
	if !ctx.IsAuth {
		writeError(ctx, apperr.Unauthorizedf("not authenticated"))
		return
	}

	videoID, err := parseVideoID(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}

	v, err := ctx.Server.Store.GetVideoByID(videoID)
	if err != nil {
		writeError(ctx, err)
		return
	}

	sourcePath := filepath.Join(ctx.Server.MediaDir, v.Filename)
	thumbPath, err := ctx.Server.Thumbs.Ensure(videoID, sourcePath)
	if err != nil {
		writeError(ctx, err)
		return
	}

	f, err := os.Open(thumbPath)
	if err != nil {
		writeError(ctx, apperr.Internalf(err, "open generated thumbnail"))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(ctx, apperr.Internalf(err, "stat thumbnail"))
		return
	}

	headers := withSecurityHeaders(httpcodec.Header{})
	headers.Set("Content-Type", "image/jpeg")
	httpcodec.WriteFileResponse(ctx.Conn, 200, headers, f, info.Size())
}
