package command

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bangumi-calendar-service/internal/model"
	"bangumi-calendar-service/internal/render"
	"bangumi-calendar-service/internal/service"

	"github.com/rs/zerolog"
)

// DefaultSearchLimit is the page size of 番剧搜索
const DefaultSearchLimit = 10

// Calendar is the subset of the Bangumi API the commands need
type Calendar interface {
	FetchCalendar(ctx context.Context) ([]model.CalendarDay, error)
	SearchSubjects(ctx context.Context, keyword string, limit, offset int) ([]any, int, error)
	FetchSubjectDetail(ctx context.Context, id int) (model.Record, error)
}

// Plugin implements the Bangumi chat commands
type Plugin struct {
	api         Calendar
	renderer    *render.Renderer
	searchLimit int
	now         func() time.Time
}

// Option configures a Plugin
type Option func(*Plugin)

// WithSearchLimit sets the search page size
func WithSearchLimit(n int) Option {
	return func(p *Plugin) {
		if n > 0 {
			p.searchLimit = n
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Plugin) {
		p.now = now
	}
}

// NewPlugin creates a Plugin. renderer may be nil, which means text only.
func NewPlugin(api Calendar, renderer *render.Renderer, opts ...Option) *Plugin {
	p := &Plugin{
		api:         api,
		renderer:    renderer,
		searchLimit: DefaultSearchLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry registers every command
func (p *Plugin) Registry() *Registry {
	r := NewRegistry()
	for _, d := range []Descriptor{
		{
			Name:    "今日番剧",
			Usage:   "今日番剧 / 今日新番：查看今日（北京时间）放送的番剧",
			Pattern: regexp.MustCompile(`^/?(?:今日番剧|今日新番)$`),
			Handle:  p.handleToday,
		},
		{
			Name:    "周几新番",
			Usage:   "周一新番 … 周日新番：查看指定星期放送的番剧",
			Pattern: regexp.MustCompile(`^/?周([一二三四五六日天])新番$`),
			Handle:  p.handleWeekday,
		},
		{
			Name:    "番剧搜索",
			Usage:   "番剧搜索 <关键词>：按关键词搜索番剧",
			Pattern: regexp.MustCompile(`^/?番剧搜索(?:[\s\x{3000}]+(.*))?$`),
			Handle:  p.handleSearch,
		},
		{
			Name:    "番剧详情",
			Usage:   "番剧详情 <条目ID>：查看单部番剧的详细信息",
			Pattern: regexp.MustCompile(`^/?番剧详情(?:[\s\x{3000}]+(.*))?$`),
			Handle:  p.handleDetail,
		},
	} {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

func (p *Plugin) handleToday(ctx context.Context, _ []string) (model.Reply, error) {
	logger := zerolog.Ctx(ctx)
	now := p.now()

	calendar, err := p.api.FetchCalendar(ctx)
	if err != nil {
		return p.fail(ctx, msgTodayFailed, err)
	}

	day, ok := service.SelectToday(ctx, calendar, now)
	if !ok {
		return model.PlainReply(msgTodayEmpty), nil
	}

	dateText, weekdayText := service.DayDisplay(day, service.Today(now))
	return p.replyDay(ctx, logger, msgTodayFailed, render.TodayHeading, msgTodayEmpty, day, dateText, weekdayText)
}

func (p *Plugin) handleWeekday(ctx context.Context, args []string) (model.Reply, error) {
	logger := zerolog.Ctx(ctx)
	now := p.now()

	weekdayID, ok := service.WeekdayFromToken(firstArg(args))
	if !ok {
		return model.PlainReply(msgCommandFailed + msgUnknown), fmt.Errorf("unknown weekday token %q", firstArg(args))
	}
	label := "周" + firstArg(args)
	prefix := weekdayFailedPrefix(label)
	emptyText := fmt.Sprintf(msgWeekdayEmpty, label)

	calendar, err := p.api.FetchCalendar(ctx)
	if err != nil {
		return p.fail(ctx, prefix, err)
	}

	day, ok := service.SelectByWeekday(calendar, weekdayID, now)
	if !ok {
		day, ok = service.SelectByDateWeekday(calendar, weekdayID, now)
		if ok {
			logger.Info().Int("weekday", weekdayID).Str("date", day.Date()).Msg("No weekday bucket, matched by date")
		}
	}
	if !ok {
		return model.PlainReply(emptyText), nil
	}

	dateText, _ := service.DayDisplay(day, service.DateOfWeekday(now, weekdayID))
	return p.replyDay(ctx, logger, prefix, label+"新番", emptyText, day, dateText, service.WeekdayName(weekdayID))
}

// replyDay renders a selected bucket, preferring an image
func (p *Plugin) replyDay(ctx context.Context, logger *zerolog.Logger, prefix, heading, emptyText string, day model.CalendarDay, dateText, weekdayText string) (model.Reply, error) {
	items, ok := day.Items()
	if !ok {
		logger.Error().Msg("Invalid day payload: items is not a list")
		return model.PlainReply(prefix + "：返回数据结构异常。"), errors.New("day items is not a list")
	}

	renderItems := service.BuildRenderItems(items, true)
	if len(renderItems) == 0 {
		return model.PlainReply(emptyText), nil
	}

	logger.Info().
		Str("date", dateText).
		Str("weekday", weekdayText).
		Int("count", len(renderItems)).
		Msg("Calendar fetched successfully")

	plainText := render.RenderDayText(heading, dateText, weekdayText, renderItems)
	if !p.renderer.ImageEnabled() {
		return model.PlainReply(plainText), nil
	}

	imageURL, err := p.renderer.RenderDayImage(ctx, heading, dateText, weekdayText, renderItems)
	if err != nil {
		logger.Error().Err(err).Msg("Image render failed, falling back to plain text")
		return model.PlainReply(plainText), nil
	}
	return model.ImageReply(imageURL), nil
}

func (p *Plugin) handleSearch(ctx context.Context, args []string) (model.Reply, error) {
	logger := zerolog.Ctx(ctx)

	keyword := strings.TrimSpace(firstArg(args))
	if keyword == "" {
		return model.PlainReply(usageSearch), nil
	}

	items, total, err := p.api.SearchSubjects(ctx, keyword, p.searchLimit, 0)
	if err != nil {
		return p.fail(ctx, msgSearchFailed, err)
	}

	// 保留接口自身的相关度排序
	renderItems := service.BuildRenderItems(items, false)
	if len(renderItems) == 0 {
		return model.PlainReply(fmt.Sprintf(msgSearchEmpty, keyword)), nil
	}
	if total < len(renderItems) {
		total = len(renderItems)
	}

	logger.Info().Str("keyword", keyword).Int("count", len(renderItems)).Int("total", total).Msg("Search completed")
	return model.PlainReply(render.RenderSearchText(keyword, renderItems, total)), nil
}

func (p *Plugin) handleDetail(ctx context.Context, args []string) (model.Reply, error) {
	logger := zerolog.Ctx(ctx)

	id, err := strconv.Atoi(strings.TrimSpace(firstArg(args)))
	if err != nil || id <= 0 {
		return model.PlainReply(usageDetail), nil
	}

	rec, err := p.api.FetchSubjectDetail(ctx, id)
	if err != nil {
		if service.IsNotFound(err) {
			return model.PlainReply(fmt.Sprintf(msgNotFound, id)), err
		}
		return p.fail(ctx, msgDetailFailed, err)
	}

	detail := service.BuildSubjectDetail(rec)
	logger.Info().Int("subject_id", id).Str("title", detail.Title).Msg("Subject detail fetched")
	return model.PlainReply(render.RenderSubjectDetailText(detail)), nil
}

// fail logs err and turns it into a chat reply
func (p *Plugin) fail(ctx context.Context, prefix string, err error) (model.Reply, error) {
	zerolog.Ctx(ctx).Error().
		Err(err).
		Str("kind", service.KindOf(err).String()).
		Msg("Command failed")
	return model.PlainReply(failureText(prefix, err)), err
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
