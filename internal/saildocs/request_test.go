package saildocs

import (
	"errors"
	"testing"
)

func TestParseAcceptsCanonicalRequest(t *testing.T) {
	req, err := Parse("gfs:25n,30n,70w,60w|1,1|0,72|wind,press")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if req.Model != "gfs" {
		t.Errorf("model = %q, want gfs", req.Model)
	}
	if req.Area != "25n,30n,70w,60w" {
		t.Errorf("area = %q", req.Area)
	}
	if req.Grid != "1,1" || req.Times != "0,72" {
		t.Errorf("grid = %q, times = %q", req.Grid, req.Times)
	}
	if len(req.Params) != 2 || req.Params[0] != "wind" || req.Params[1] != "press" {
		t.Errorf("params = %v", req.Params)
	}
}

func TestParseIsCaseInsensitive(t *testing.T) {
	req, err := Parse("GFS:25N,30N,70W,60W|1,1|0,72|WIND")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if req.Model != "gfs" || req.Params[0] != "wind" {
		t.Errorf("expected lowercased fields, got %q %v", req.Model, req.Params)
	}
	// Raw is forwarded verbatim apart from trimming.
	if req.Raw != "GFS:25N,30N,70W,60W|1,1|0,72|WIND" {
		t.Errorf("raw = %q", req.Raw)
	}
}

func TestParseTrimsSurroundingSpace(t *testing.T) {
	if _, err := Parse("  gfs:25n,30n,70w,60w|1,1|0,72|wind \r\n"); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestParseRejections(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"missing hemisphere on first coordinate", "gfs:25,30n,70w,60w|1,1|0,72|wind"},
		{"missing model", ":25n,30n,70w,60w|1,1|0,72|wind"},
		{"missing params", "gfs:25n,30n,70w,60w|1,1|0,72|"},
		{"four digit coordinate", "gfs:2500n,30n,70w,60w|1,1|0,72|wind"},
		{"trailing comma in params", "gfs:25n,30n,70w,60w|1,1|0,72|wind,"},
		{"missing field separator", "gfs:25n,30n,70w,60w|1,1|0,72 wind"},
		{"free text", "what is the weather like"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.in)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("Parse(%q) err = %v, want ErrInvalidRequest", tc.in, err)
			}
		})
	}
}
