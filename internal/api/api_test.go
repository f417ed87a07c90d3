package api

import "testing"

func TestParseQueryParams(t *testing.T) {
	got := parseQueryParams("limit=5&q=movie&cursor=")
	if got["limit"] != "5" || got["q"] != "movie" || got["cursor"] != "" {
		t.Errorf("got %+v", got)
	}
}

func TestParseQueryParamsEmpty(t *testing.T) {
	got := parseQueryParams("")
	if len(got) != 0 {
		t.Errorf("expected empty map, got %+v", got)
	}
}

func TestMimeType(t *testing.T) {
	cases := map[string]string{
		"index.html":  "text/html",
		"app.js":      "application/javascript",
		"photo.PNG":   "image/png",
		"unknown.bin": "application/octet-stream",
	}
	for path, want := range cases {
		if got := mimeType(path); got != want {
			t.Errorf("mimeType(%q) = %q, want %q", path, got, want)
		}
	}
}
