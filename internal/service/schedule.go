package service

import (
	"context"
	"strings"
	"time"

	"bangumi-calendar-service/internal/model"

	"github.com/rs/zerolog"
)

// Shanghai is the reference timezone for "today".
// China has no DST, so a fixed zone avoids depending on tzdata.
var Shanghai = time.FixedZone("Asia/Shanghai", 8*60*60)

const dateLayout = "2006-01-02"

// weekdayCN maps ISO weekday ids to Chinese names
var weekdayCN = map[int]string{
	1: "星期一",
	2: "星期二",
	3: "星期三",
	4: "星期四",
	5: "星期五",
	6: "星期六",
	7: "星期日",
}

// weekdayEN maps ISO weekday ids to lowercase English names
var weekdayEN = map[int]string{
	1: "monday",
	2: "tuesday",
	3: "wednesday",
	4: "thursday",
	5: "friday",
	6: "saturday",
	7: "sunday",
}

// weekdayTokens maps the character after 周 in a command to an ISO id
var weekdayTokens = map[string]int{
	"一": 1,
	"二": 2,
	"三": 3,
	"四": 4,
	"五": 5,
	"六": 6,
	"日": 7,
	"天": 7,
}

// cnAliases also accepts 周X and 星期天 spellings
var cnAliases = map[string]int{
	"周一": 1, "周二": 2, "周三": 3, "周四": 4, "周五": 5, "周六": 6, "周日": 7, "周天": 7,
	"星期天": 7,
}

// WeekdayName returns the Chinese weekday name for an ISO id
func WeekdayName(id int) string {
	return weekdayCN[id]
}

// WeekdayFromToken resolves 一..日|天 to an ISO weekday id
func WeekdayFromToken(token string) (int, bool) {
	id, ok := weekdayTokens[token]
	return id, ok
}

// ISOWeekday converts a time to Monday=1..Sunday=7
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// ResolveWeekday works out which ISO weekday a calendar bucket represents.
// Precedence: numeric id, Chinese name, English name or 3-letter abbreviation.
func ResolveWeekday(day model.CalendarDay) (int, bool) {
	weekday, ok := day.Weekday()
	if !ok {
		return 0, false
	}

	if id, ok := weekday.Int("id"); ok && id >= 1 && id <= 7 {
		return id, true
	}

	if cn, ok := weekday.String("cn"); ok {
		cn = strings.TrimSpace(cn)
		for id, name := range weekdayCN {
			if cn == name {
				return id, true
			}
		}
		if id, ok := cnAliases[cn]; ok {
			return id, true
		}
	}

	if en, ok := weekday.String("en"); ok {
		en = strings.ToLower(strings.TrimSpace(en))
		for id, name := range weekdayEN {
			if en != "" && (en == name || en == name[:3]) {
				return id, true
			}
		}
	}

	return 0, false
}

// SelectByWeekday picks the bucket for an ISO weekday.
//
// Among matching buckets with a parseable date, the latest date on or
// before base wins; failing that, the earliest future date. Buckets
// without dates fall back to input order. Returns false when no bucket
// matches the weekday.
func SelectByWeekday(days []model.CalendarDay, weekdayID int, base time.Time) (model.CalendarDay, bool) {
	var candidates []model.CalendarDay
	for _, day := range days {
		if id, ok := ResolveWeekday(day); ok && id == weekdayID {
			candidates = append(candidates, day)
		}
	}
	return pickByDate(candidates, base)
}

// SelectByDateWeekday picks among buckets whose date falls on the given
// weekday, whatever their weekday object says. It is the fallback when
// SelectByWeekday finds nothing.
func SelectByDateWeekday(days []model.CalendarDay, weekdayID int, base time.Time) (model.CalendarDay, bool) {
	var candidates []model.CalendarDay
	for _, day := range days {
		date, ok := parseDate(day.Date())
		if ok && ISOWeekday(date) == weekdayID {
			candidates = append(candidates, day)
		}
	}
	return pickByDate(candidates, base)
}

// SelectToday picks the bucket for today in Shanghai time.
// Weekday match first, then exact date, then the first bucket.
func SelectToday(ctx context.Context, days []model.CalendarDay, now time.Time) (model.CalendarDay, bool) {
	if len(days) == 0 {
		return nil, false
	}

	local := now.In(Shanghai)
	todayID := ISOWeekday(local)
	todayDate := local.Format(dateLayout)

	if day, ok := SelectByWeekday(days, todayID, local); ok {
		return day, true
	}

	for _, day := range days {
		if day.Date() == todayDate {
			return day, true
		}
	}

	fallback := days[0]
	fallbackDate := fallback.Date()
	if fallbackDate == "" {
		fallbackDate = "unknown"
	}
	zerolog.Ctx(ctx).Warn().
		Str("date", todayDate).
		Str("weekday", weekdayCN[todayID]+"/"+weekdayEN[todayID]).
		Str("fallback_date", fallbackDate).
		Msg("No calendar entry matched today, using first entry")
	return fallback, true
}

// DayDisplay returns the date and weekday labels for a bucket.
// Missing dates are replaced by fallbackDate.
func DayDisplay(day model.CalendarDay, fallbackDate string) (string, string) {
	weekdayText := ""
	if weekday, ok := day.Weekday(); ok {
		if cn, ok := weekday.String("cn"); ok && strings.TrimSpace(cn) != "" {
			weekdayText = strings.TrimSpace(cn)
		} else if en, ok := weekday.String("en"); ok {
			weekdayText = strings.TrimSpace(en)
		}
	}

	dateText := day.Date()
	if dateText == "" {
		dateText = fallbackDate
	}
	return dateText, weekdayText
}

// DateOfWeekday returns the date of an ISO weekday in the same
// Monday-based week as base, formatted as YYYY-MM-DD.
func DateOfWeekday(base time.Time, weekdayID int) string {
	local := base.In(Shanghai)
	return local.AddDate(0, 0, weekdayID-ISOWeekday(local)).Format(dateLayout)
}

// Today returns the current date in Shanghai time
func Today(now time.Time) string {
	return now.In(Shanghai).Format(dateLayout)
}

func pickByDate(candidates []model.CalendarDay, base time.Time) (model.CalendarDay, bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	b := base.In(Shanghai)
	baseDay := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	var past, future model.CalendarDay
	var pastDate, futureDate time.Time
	for _, day := range candidates {
		date, ok := parseDate(day.Date())
		if !ok {
			continue
		}
		if !date.After(baseDay) {
			if past == nil || date.After(pastDate) {
				past, pastDate = day, date
			}
		} else if future == nil || date.Before(futureDate) {
			future, futureDate = day, date
		}
	}

	switch {
	case past != nil:
		return past, true
	case future != nil:
		return future, true
	default:
		return candidates[0], true
	}
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
