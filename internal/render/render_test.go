package render

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bangumi-calendar-service/internal/model"
	"bangumi-calendar-service/pkg/httpclient"
)

func sampleItems() []model.RenderItem {
	return []model.RenderItem{
		{Rank: 1, Title: "星际牛仔", RatingText: "9.1 (15000 人评分)", RatingTotal: 15000, URL: "http://bgm.tv/subject/253"},
		{Rank: 2, Title: "未命名条目", RatingText: "暂无评分", URL: "无链接"},
	}
}

func TestRenderDayText(t *testing.T) {
	got := RenderDayText(TodayHeading, "2024-05-06", "星期一", sampleItems())
	want := "今日番剧推荐 (2024-05-06 星期一)\n\n" +
		"共 2 部\n\n" +
		"1. 星际牛仔\n评分: 9.1 (15000 人评分)\n评分人数: 15000\n链接: http://bgm.tv/subject/253\n\n" +
		"2. 未命名条目\n评分: 暂无评分\n评分人数: 0\n链接: 无链接"
	if got != want {
		t.Fatalf("RenderDayText =\n%s\nwant\n%s", got, want)
	}

	empty := RenderDayText(TodayHeading, "2024-05-06", "", nil)
	if !strings.HasPrefix(empty, "今日番剧推荐 (2024-05-06 )\n\n共 0 部") {
		t.Fatalf("RenderDayText(empty) = %q", empty)
	}
}

func TestRenderSearchText(t *testing.T) {
	got := RenderSearchText("牛仔", sampleItems()[:1], 57)
	if !strings.HasPrefix(got, "番剧搜索：牛仔\n\n共找到 57 部，本页显示 1 部\n\n1. 星际牛仔") {
		t.Fatalf("RenderSearchText = %q", got)
	}
}

func TestRenderSubjectDetailText(t *testing.T) {
	d := model.SubjectDetail{
		RenderItem: model.RenderItem{
			SubjectID:     253,
			Title:         "星际牛仔",
			OriginalTitle: "カウボーイビバップ",
			RatingText:    "9.1 (15000 人评分)",
			RatingTotal:   15000,
			URL:           "https://bgm.tv/subject/253",
			Tags:          []string{"科幻", "原创"},
			Summary:       "2071年",
		},
		RankPosition: 12,
		Episodes:     26,
		AirDate:      "1998-10-23",
		Collection:   model.CollectionStats{Wish: 1, Doing: 2, Done: 3, OnHold: 4, Dropped: 5},
	}

	got := RenderSubjectDetailText(d)
	for _, want := range []string{
		"番剧详情：星际牛仔\n",
		"原名: カウボーイビバップ\n",
		"排名: #12\n",
		"首播日期: 1998-10-23\n",
		"话数: 26\n",
		"收藏: 想看 1 / 在看 2 / 看过 3 / 搁置 4 / 抛弃 5\n",
		"标签: 科幻 / 原创\n",
		"简介: 2071年\n",
		"链接: https://bgm.tv/subject/253",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("detail text missing %q:\n%s", want, got)
		}
	}

	bare := RenderSubjectDetailText(model.SubjectDetail{RenderItem: model.RenderItem{Title: "X", URL: "无链接"}})
	if strings.Contains(bare, "标签") || strings.Contains(bare, "原名") {
		t.Fatalf("bare detail should omit tags and original title:\n%s", bare)
	}
	if !strings.Contains(bare, "排名: 暂无") || !strings.Contains(bare, "话数: 未知") || !strings.Contains(bare, "首播日期: 未知") {
		t.Fatalf("bare detail placeholders missing:\n%s", bare)
	}
}

type stubImages struct {
	url  string
	err  error
	data interface{}
	tmpl string
}

func (s *stubImages) Render(_ context.Context, tmpl string, data interface{}, _ Options) (string, error) {
	s.tmpl, s.data = tmpl, data
	return s.url, s.err
}

func TestRenderer_RenderDayImage(t *testing.T) {
	ctx := context.Background()

	var nilRenderer *Renderer
	if _, err := nilRenderer.RenderDayImage(ctx, "h", "d", "w", nil); !errors.Is(err, ErrRenderDisabled) {
		t.Fatalf("nil renderer err = %v", err)
	}
	if _, err := NewRenderer(&stubImages{url: "x"}, "").RenderDayImage(ctx, "h", "d", "w", nil); !errors.Is(err, ErrRenderDisabled) {
		t.Fatalf("no template err = %v", err)
	}

	stub := &stubImages{url: "https://img/1.jpeg"}
	r := NewRenderer(stub, "<html></html>")
	url, err := r.RenderDayImage(ctx, TodayHeading, "2024-05-06", "星期一", sampleItems())
	if err != nil || url != "https://img/1.jpeg" {
		t.Fatalf("RenderDayImage = (%q, %v)", url, err)
	}
	data, ok := stub.data.(model.DayImageData)
	if !ok || data.Count != 2 || data.Heading != TodayHeading || data.WeekdayText != "星期一" {
		t.Fatalf("template data = %#v", stub.data)
	}

	stub.err = errors.New("chromium crashed")
	if _, err := r.RenderDayImage(ctx, "h", "d", "w", nil); !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("collaborator error = %v, want ErrRenderFailed", err)
	}

	stub.err, stub.url = nil, " "
	if _, err := r.RenderDayImage(ctx, "h", "d", "w", nil); !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("empty url err = %v, want ErrRenderFailed", err)
	}
}

func TestT2IRenderer(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/text2img/generate":
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"data":{"id":"abc.jpeg"}}`))
		default:
			http.Error(w, "no", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)

	client := httpclient.NewClient("", 2*time.Second)
	ctx := context.Background()

	disabled := NewT2IRenderer(client, " ")
	if _, err := disabled.Render(ctx, "t", nil, DayImageOptions); !errors.Is(err, ErrRenderDisabled) {
		t.Fatalf("disabled err = %v", err)
	}

	r := NewT2IRenderer(client, server.URL+"/text2img/")
	url, err := r.Render(ctx, "<p>{{ count }}</p>", map[string]int{"count": 3}, DayImageOptions)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if url != server.URL+"/text2img/abc.jpeg" {
		t.Fatalf("url = %q", url)
	}
	if got["tmpl"] != "<p>{{ count }}</p>" || got["json"] != true {
		t.Fatalf("payload = %v", got)
	}
	opts, _ := got["options"].(map[string]any)
	if opts["type"] != "jpeg" || opts["quality"] != float64(85) || opts["full_page"] != true {
		t.Fatalf("options = %v", got["options"])
	}

	broken := NewT2IRenderer(client, server.URL+"/other")
	if _, err := broken.Render(ctx, "t", nil, DayImageOptions); !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("broken err = %v, want ErrRenderFailed", err)
	}
}

func TestLoadDayTemplate(t *testing.T) {
	ctx := context.Background()

	def := LoadDayTemplate(ctx, "")
	if !strings.Contains(def, "{% for item in items %}") || !strings.Contains(def, "{{ heading }}") {
		t.Fatalf("embedded template looks wrong")
	}

	path := filepath.Join(t.TempDir(), "day.html")
	if err := os.WriteFile(path, []byte("custom"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if got := LoadDayTemplate(ctx, path); got != "custom" {
		t.Fatalf("LoadDayTemplate(custom) = %q", got)
	}
	if got := LoadDayTemplate(ctx, filepath.Join(t.TempDir(), "missing.html")); got != "" {
		t.Fatalf("LoadDayTemplate(missing) = %q, want empty", got)
	}
}
