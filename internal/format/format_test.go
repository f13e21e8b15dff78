package format

import (
	"bytes"
	"strings"
	"testing"
)

func TestWrite_JSONEnvelope(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"data": []int{1, 2}}, "", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := buf.String(); got != "{\"data\":[1,2]}\n" {
		t.Fatalf("unexpected json %q", got)
	}
	if err := Write(&buf, nil, "yaml", false); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestWriteEDN_KeywordsAndNumbers(t *testing.T) {
	type row struct {
		ID         string  `json:"id"`
		ColumnSpan int     `json:"columnSpan"`
		Width      float64 `json:"width"`
		Visible    bool    `json:"visible"`
		Note       *string `json:"note"`
	}
	var buf bytes.Buffer
	if err := WriteEDN(&buf, map[string]any{"data": []row{{ID: "evt-1", ColumnSpan: 2, Width: 0.5, Visible: true}}}, false); err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	want := `{:data [{:column-span 2 :id "evt-1" :note nil :visible true :width 0.5}]}` + "\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected edn\n got %q\nwant %q", got, want)
	}
}

func TestWriteEDN_Pretty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEDN(&buf, map[string]any{"a": []any{}, "b": map[string]any{}}, true); err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  :a []\n  :b {}\n") {
		t.Fatalf("unexpected pretty edn %q", buf.String())
	}
}

func TestKeyword(t *testing.T) {
	for in, want := range map[string]string{
		"id":          "id",
		"calendarId":  "calendar-id",
		"zIndex":      "z-index",
		"horizon_day": "horizon-day",
	} {
		if got := Keyword(in); got != want {
			t.Fatalf("Keyword(%q) = %q, want %q", in, got, want)
		}
	}
}
