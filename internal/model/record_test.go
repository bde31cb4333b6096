package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func decode(t *testing.T, raw string) Record {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var r Record
	if err := dec.Decode(&r); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return r
}

func TestRecord_Int(t *testing.T) {
	r := decode(t, `{"a": "123", "b": 45.9, "c": "abc", "d": true, "e": null, "f": 7, "g": " 12 ", "h": "45.9"}`)

	cases := []struct {
		key    string
		want   int
		wantOK bool
	}{
		{"a", 123, true},
		{"b", 45, true},
		{"c", 0, false},
		{"d", 0, false},
		{"e", 0, false},
		{"f", 7, true},
		{"g", 12, true},
		{"h", 0, false},
		{"missing", 0, false},
	}
	for _, tc := range cases {
		got, ok := r.Int(tc.key)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("Int(%q) = (%d, %v), want (%d, %v)", tc.key, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestRecord_FloatAndText(t *testing.T) {
	r := decode(t, `{"score": 8, "s": "7.25", "bad": "x", "obj": {}}`)

	if f, ok := r.Float("score"); !ok || f != 8 {
		t.Fatalf("Float(score) = (%v, %v), want (8, true)", f, ok)
	}
	if f, ok := r.Float("s"); !ok || f != 7.25 {
		t.Fatalf("Float(s) = (%v, %v), want (7.25, true)", f, ok)
	}
	if _, ok := r.Float("bad"); ok {
		t.Fatalf("Float(bad) ok = true, want false")
	}
	if s, ok := r.String("score"); !ok || s != "8" {
		t.Fatalf("String(score) = (%q, %v), want (\"8\", true)", s, ok)
	}
	if _, ok := r.String("obj"); ok {
		t.Fatalf("String(obj) ok = true, want false")
	}
}

func TestRecord_ObjectAndList(t *testing.T) {
	r := decode(t, `{"o": {"k": 1}, "l": [1, 2], "s": "str"}`)

	if o, ok := r.Object("o"); !ok || !o.Has("k") {
		t.Fatalf("Object(o) = (%v, %v)", o, ok)
	}
	if _, ok := r.Object("s"); ok {
		t.Fatalf("Object(s) ok = true, want false")
	}
	if l, ok := r.List("l"); !ok || len(l) != 2 {
		t.Fatalf("List(l) = (%v, %v)", l, ok)
	}
	if _, ok := r.List("o"); ok {
		t.Fatalf("List(o) ok = true, want false")
	}
}

func TestCalendarDay_Accessors(t *testing.T) {
	d := CalendarDay(decode(t, `{"weekday": "oops", "date": " 2024-05-06 ", "items": {}}`))

	if _, ok := d.Weekday(); ok {
		t.Fatalf("Weekday() ok = true for string weekday")
	}
	if got := d.Date(); got != "2024-05-06" {
		t.Fatalf("Date() = %q", got)
	}
	if _, ok := d.Items(); ok {
		t.Fatalf("Items() ok = true for object items")
	}

	empty := CalendarDay(decode(t, `{}`))
	items, ok := empty.Items()
	if !ok || len(items) != 0 {
		t.Fatalf("Items() on missing = (%v, %v), want empty ok", items, ok)
	}
}
