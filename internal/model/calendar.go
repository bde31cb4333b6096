package model

import "strings"

// CalendarDay is one weekday bucket from GET /calendar:
//
//	{"weekday": {"en": "Mon", "cn": "星期一", "ja": "月耀日", "id": 1}, "items": [...]}
//
// Some mirrors also attach a "date" field.
type CalendarDay Record

// Weekday returns the weekday object, if present and well-formed
func (d CalendarDay) Weekday() (Record, bool) {
	return Record(d).Object("weekday")
}

// Date returns the trimmed date string or ""
func (d CalendarDay) Date() string {
	s, _ := Record(d).String("date")
	return strings.TrimSpace(s)
}

// Items returns the subject list; ok is false when items is not an array
func (d CalendarDay) Items() ([]any, bool) {
	v, present := Record(d).Raw("items")
	if !present {
		return []any{}, true
	}
	list, ok := v.([]any)
	return list, ok
}
