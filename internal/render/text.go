package render

import (
	"fmt"
	"strings"

	"bangumi-calendar-service/internal/model"
)

// TodayHeading is the heading of the today command
const TodayHeading = "今日番剧推荐"

// RenderDayText renders a day schedule as plain text:
// a heading line, a count line, then one block per item.
func RenderDayText(heading, dateText, weekdayText string, items []model.RenderItem) string {
	lines := []string{
		strings.TrimSpace(fmt.Sprintf("%s (%s %s)", heading, dateText, weekdayText)),
		fmt.Sprintf("共 %d 部", len(items)),
	}
	for _, item := range items {
		lines = append(lines, itemBlock(item))
	}
	return strings.Join(lines, "\n\n")
}

// RenderSearchText renders one page of search results
func RenderSearchText(keyword string, items []model.RenderItem, total int) string {
	lines := []string{
		fmt.Sprintf("番剧搜索：%s", keyword),
		fmt.Sprintf("共找到 %d 部，本页显示 %d 部", total, len(items)),
	}
	for _, item := range items {
		lines = append(lines, itemBlock(item))
	}
	return strings.Join(lines, "\n\n")
}

// RenderSubjectDetailText renders a single subject
func RenderSubjectDetailText(d model.SubjectDetail) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("番剧详情：%s\n", d.Title))
	if d.OriginalTitle != "" && d.OriginalTitle != d.Title {
		b.WriteString(fmt.Sprintf("原名: %s\n", d.OriginalTitle))
	}
	b.WriteString(fmt.Sprintf("条目 ID: %d\n", d.SubjectID))
	b.WriteString(fmt.Sprintf("评分: %s\n", d.RatingText))
	b.WriteString(fmt.Sprintf("评分人数: %d\n", d.RatingTotal))

	if d.RankPosition > 0 {
		b.WriteString(fmt.Sprintf("排名: #%d\n", d.RankPosition))
	} else {
		b.WriteString("排名: 暂无\n")
	}
	b.WriteString(fmt.Sprintf("首播日期: %s\n", orUnknown(d.AirDate)))
	if d.Episodes > 0 {
		b.WriteString(fmt.Sprintf("话数: %d\n", d.Episodes))
	} else {
		b.WriteString("话数: 未知\n")
	}
	if d.Platform != "" {
		b.WriteString(fmt.Sprintf("类型: %s\n", d.Platform))
	}

	c := d.Collection
	b.WriteString(fmt.Sprintf("收藏: 想看 %d / 在看 %d / 看过 %d / 搁置 %d / 抛弃 %d\n",
		c.Wish, c.Doing, c.Done, c.OnHold, c.Dropped))

	if len(d.Tags) > 0 {
		b.WriteString(fmt.Sprintf("标签: %s\n", strings.Join(d.Tags, " / ")))
	}
	if d.Summary != "" {
		b.WriteString(fmt.Sprintf("简介: %s\n", d.Summary))
	}
	b.WriteString(fmt.Sprintf("链接: %s", d.URL))

	return b.String()
}

func itemBlock(item model.RenderItem) string {
	return fmt.Sprintf("%d. %s\n评分: %s\n评分人数: %d\n链接: %s",
		item.Rank, item.Title, item.RatingText, item.RatingTotal, item.URL)
}

func orUnknown(s string) string {
	if s == "" {
		return "未知"
	}
	return s
}
