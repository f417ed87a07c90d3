package router

import "testing"

func TestMatchStaticRoute(t *testing.T) {
	r := New()
	var called bool
	r.Handle("GET", "/api/videos", func(ctx interface{}, params []Param) { called = true })

	h, params, ok := r.Match("GET", "/api/videos")
	if !ok {
		t.Fatal("expected match")
	}
	h(nil, params)
	if !called {
		t.Error("expected handler to be invoked")
	}
	if len(params) != 0 {
		t.Errorf("expected no params, got %+v", params)
	}
}

func TestMatchParamSegment(t *testing.T) {
	r := New()
	r.Handle("GET", "/api/videos/:id/stream", func(ctx interface{}, params []Param) {})

	_, params, ok := r.Match("GET", "/api/videos/42/stream")
	if !ok {
		t.Fatal("expected match")
	}
	if len(params) != 1 || params[0].Name != "id" || params[0].Value != "42" {
		t.Errorf("got params %+v", params)
	}
}

func TestMatchRequiresEqualSegmentCount(t *testing.T) {
	r := New()
	r.Handle("GET", "/api/videos/:id", func(ctx interface{}, params []Param) {})

	_, _, ok := r.Match("GET", "/api/videos/42/stream")
	if ok {
		t.Error("expected no match for mismatched segment count")
	}
}

func TestMatchWrongMethod(t *testing.T) {
	r := New()
	r.Handle("POST", "/api/history/:id", func(ctx interface{}, params []Param) {})

	_, _, ok := r.Match("GET", "/api/history/1")
	if ok {
		t.Error("expected no match for a different method")
	}
}

func TestMatchFirstRegisteredWins(t *testing.T) {
	r := New()
	var hitFirst, hitSecond bool
	r.Handle("GET", "/api/videos/:id", func(ctx interface{}, params []Param) { hitFirst = true })
	r.Handle("GET", "/api/videos/:slug", func(ctx interface{}, params []Param) { hitSecond = true })

	h, params, ok := r.Match("GET", "/api/videos/7")
	if !ok {
		t.Fatal("expected match")
	}
	h(nil, params)
	if !hitFirst || hitSecond {
		t.Error("expected the first registered route to win")
	}
}

func TestMatchNoRoute(t *testing.T) {
	r := New()
	r.Handle("GET", "/api/videos", func(ctx interface{}, params []Param) {})

	_, _, ok := r.Match("GET", "/does/not/exist")
	if ok {
		t.Error("expected no match")
	}
}

func TestMatchRootPath(t *testing.T) {
	r := New()
	r.Handle("GET", "/", func(ctx interface{}, params []Param) {})

	_, _, ok := r.Match("GET", "/")
	if !ok {
		t.Error("expected root path to match")
	}
}
