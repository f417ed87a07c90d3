package rangefile

import (
	"testing"

	"ott-server/internal/apperr"
)

const fileSize = 1_000_000

func TestParseNoRangeHeader(t *testing.T) {
	r, err := Parse("", fileSize)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !r.IsFull() {
		t.Errorf("expected NoRange sentinel, got %+v", r)
	}
}

func TestParseSingleByte(t *testing.T) {
	r, err := Parse("bytes=0-0", fileSize)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if r.Start != 0 || r.End != 0 || r.Length() != 1 {
		t.Errorf("got %+v, want 1-byte range at offset 0", r)
	}
}

func TestParseOpenEndedRange(t *testing.T) {
	r, err := Parse("bytes=500-", fileSize)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if r.Start != 500 || r.End != fileSize-1 {
		t.Errorf("got %+v, want start=500 end=%d", r, fileSize-1)
	}
}

func TestParseSuffixRange(t *testing.T) {
	r, err := Parse("bytes=-500", fileSize)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if r.Start != fileSize-500 || r.End != fileSize-1 {
		t.Errorf("got %+v", r)
	}
}

func TestParseSuffixRangeLargerThanFile(t *testing.T) {
	r, err := Parse("bytes=-2000000", fileSize)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if r.Start != 0 || r.End != fileSize-1 {
		t.Errorf("got %+v, want start=0 end=%d", r, fileSize-1)
	}
}

func TestParseEndBeyondFileSizeClamped(t *testing.T) {
	r, err := Parse("bytes=100-99999999", fileSize)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if r.End != fileSize-1 {
		t.Errorf("expected end clamped to %d, got %d", fileSize-1, r.End)
	}
}

func TestParseStartBeyondFileSizeFails(t *testing.T) {
	_, err := Parse("bytes=2000000-2000010", fileSize)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.RangeNotSatisfiable {
		t.Fatalf("expected RangeNotSatisfiable, got %v", err)
	}
}

func TestParseEndBeforeStartFails(t *testing.T) {
	_, err := Parse("bytes=500-100", fileSize)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.RangeNotSatisfiable {
		t.Fatalf("expected RangeNotSatisfiable, got %v", err)
	}
}

func TestParseMalformedRangeFails(t *testing.T) {
	_, err := Parse("bytes=abc-def", fileSize)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.RangeNotSatisfiable {
		t.Fatalf("expected RangeNotSatisfiable, got %v", err)
	}
}

func TestParseUnsupportedUnitFails(t *testing.T) {
	_, err := Parse("items=0-1", fileSize)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.RangeNotSatisfiable {
		t.Fatalf("expected RangeNotSatisfiable, got %v", err)
	}
}

func TestParseMultipleRangesUnsupported(t *testing.T) {
	_, err := Parse("bytes=0-100,200-300", fileSize)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.RangeNotSatisfiable {
		t.Fatalf("expected RangeNotSatisfiable, got %v", err)
	}
}

func TestWholeFileExactBoundary(t *testing.T) {
	r, err := Parse("bytes=0-999999", fileSize)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if r.Length() != fileSize {
		t.Errorf("got length %d, want %d", r.Length(), fileSize)
	}
}
