package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"bangumi-calendar-service/internal/model"
)

const (
	// DefaultTagLimit and DefaultSummaryLimit apply to list views
	DefaultTagLimit     = 6
	DefaultSummaryLimit = 100

	// DetailTagLimit and DetailSummaryLimit apply to the single-subject view
	DetailTagLimit     = 8
	DetailSummaryLimit = 280
)

const (
	// SubjectPageURL is the canonical subject page pattern
	SubjectPageURL = "https://bgm.tv/subject/%d"

	NoRatingText = "暂无评分"
	NoLinkText   = "无链接"
	UntitledText = "未命名条目"
)

// coverKeys is the image size priority for covers
var coverKeys = []string{"common", "large", "medium", "small", "grid"}

// BuildRenderItems turns raw subject records into ranked view models.
// Non-object entries are skipped. When sortByRatingTotal is set, items
// are stably sorted by rating count, highest first; search results keep
// the API order instead.
func BuildRenderItems(items []any, sortByRatingTotal bool) []model.RenderItem {
	records := make([]model.Record, 0, len(items))
	for _, item := range items {
		if rec, ok := model.AsRecord(item); ok {
			records = append(records, rec)
		}
	}

	if sortByRatingTotal {
		sort.SliceStable(records, func(i, j int) bool {
			return RatingTotal(records[i]) > RatingTotal(records[j])
		})
	}

	results := make([]model.RenderItem, 0, len(records))
	for i, rec := range records {
		item := buildItem(rec, DefaultTagLimit, DefaultSummaryLimit)
		item.Rank = i + 1
		results = append(results, item)
	}
	return results
}

// BuildSubjectDetail turns a /v0/subjects/{id} payload into the detail view
func BuildSubjectDetail(rec model.Record) model.SubjectDetail {
	detail := model.SubjectDetail{
		RenderItem: buildItem(rec, DetailTagLimit, DetailSummaryLimit),
	}
	detail.Rank = 1

	if rating, ok := rec.Object("rating"); ok {
		detail.RankPosition, _ = rating.Int("rank")
	}
	if detail.RankPosition <= 0 {
		detail.RankPosition, _ = rec.Int("rank")
	}
	if detail.RankPosition < 0 {
		detail.RankPosition = 0
	}

	if eps, ok := rec.Int("total_episodes"); ok && eps > 0 {
		detail.Episodes = eps
	} else if eps, ok := rec.Int("eps"); ok && eps > 0 {
		detail.Episodes = eps
	}

	if date, ok := rec.String("date"); ok {
		detail.AirDate = strings.TrimSpace(date)
	}
	if platform, ok := rec.String("platform"); ok {
		detail.Platform = strings.TrimSpace(platform)
	}

	if coll, ok := rec.Object("collection"); ok {
		detail.Collection = model.CollectionStats{
			Wish:    nonNegative(coll, "wish"),
			Doing:   nonNegative(coll, "doing"),
			Done:    nonNegative(coll, "collect"),
			OnHold:  nonNegative(coll, "on_hold"),
			Dropped: nonNegative(coll, "dropped"),
		}
	}
	return detail
}

func buildItem(rec model.Record, tagLimit, summaryLimit int) model.RenderItem {
	originalTitle, _ := rec.String("name")
	originalTitle = strings.TrimSpace(originalTitle)

	title, _ := rec.String("name_cn")
	title = strings.TrimSpace(title)
	if title == "" {
		title = originalTitle
	}
	if title == "" {
		title = UntitledText
	}

	subjectID, _ := rec.Int("id")

	return model.RenderItem{
		SubjectID:     subjectID,
		Title:         title,
		OriginalTitle: originalTitle,
		URL:           SubjectURL(rec),
		RatingText:    RatingText(rec),
		RatingScore:   RatingScore(rec),
		RatingTotal:   RatingTotal(rec),
		Cover:         CoverURL(rec),
		Tags:          Tags(rec, tagLimit),
		Summary:       Summary(rec, summaryLimit),
	}
}

// RatingTotal returns the number of ratings, never negative
func RatingTotal(rec model.Record) int {
	rating, ok := rec.Object("rating")
	if !ok {
		return 0
	}
	total, ok := rating.Int("total")
	if !ok || total < 0 {
		return 0
	}
	return total
}

// RatingScore returns the score with one decimal, "0.0" when unusable
func RatingScore(rec model.Record) string {
	rating, ok := rec.Object("rating")
	if !ok {
		return "0.0"
	}
	score, ok := rating.Float("score")
	if !ok {
		return "0.0"
	}
	return strconv.FormatFloat(score, 'f', 1, 64)
}

// RatingText renders the rating line
func RatingText(rec model.Record) string {
	rating, ok := rec.Object("rating")
	if !ok {
		return NoRatingText
	}
	score, ok := rating.Raw("score")
	if !ok {
		return NoRatingText
	}
	scoreText, ok := model.Text(score)
	if !ok {
		return NoRatingText
	}

	total, ok := rating.Raw("total")
	if !ok {
		return scoreText
	}
	totalText, ok := model.Text(total)
	if !ok {
		return scoreText
	}
	return fmt.Sprintf("%s (%s 人评分)", scoreText, totalText)
}

// NormalizeURL trims a URL and upgrades protocol-relative ones to https
func NormalizeURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "//") {
		return "https:" + val
	}
	return val
}

// CoverURL returns the first usable image in priority order
func CoverURL(rec model.Record) string {
	images, ok := rec.Object("images")
	if !ok {
		return ""
	}
	for _, key := range coverKeys {
		cover, ok := images.String(key)
		if !ok {
			continue
		}
		if normalized := NormalizeURL(cover); normalized != "" {
			return normalized
		}
	}
	return ""
}

// Tags returns up to limit non-empty tag names.
// Entries may be plain strings or {"name": ...} objects.
func Tags(rec model.Record, limit int) []string {
	result := []string{}
	tags, ok := rec.List("tags")
	if !ok || limit <= 0 {
		return result
	}

	for _, tag := range tags {
		var name string
		if obj, ok := model.AsRecord(tag); ok {
			name, _ = obj.String("name")
		} else {
			name, _ = model.Text(tag)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		result = append(result, name)
		if len(result) >= limit {
			break
		}
	}
	return result
}

// Summary flattens newlines and truncates to limit characters with "..."
func Summary(rec model.Record, limit int) string {
	summary, _ := rec.String("summary")
	summary = strings.TrimSpace(summary)
	summary = strings.ReplaceAll(summary, "\r\n", " ")
	summary = strings.ReplaceAll(summary, "\r", " ")
	summary = strings.ReplaceAll(summary, "\n", " ")
	if summary == "" {
		return ""
	}

	runes := []rune(summary)
	if limit <= 0 || len(runes) <= limit {
		return summary
	}
	return strings.TrimRightFunc(string(runes[:limit]), unicode.IsSpace) + "..."
}

// SubjectURL prefers the payload url, then builds one from the id
func SubjectURL(rec model.Record) string {
	if raw, ok := rec.String("url"); ok {
		if normalized := NormalizeURL(raw); normalized != "" {
			return normalized
		}
	}
	if id, ok := rec.Int("id"); ok && id > 0 {
		return fmt.Sprintf(SubjectPageURL, id)
	}
	return NoLinkText
}

func nonNegative(rec model.Record, key string) int {
	n, ok := rec.Int(key)
	if !ok || n < 0 {
		return 0
	}
	return n
}
