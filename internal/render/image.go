package render

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"bangumi-calendar-service/internal/model"
	"bangumi-calendar-service/pkg/httpclient"

	"github.com/rs/zerolog"
)

//go:embed templates/bangumi_day.html
var templates embed.FS

var (
	// ErrRenderFailed wraps any failure of the image collaborator
	ErrRenderFailed = errors.New("image render failed")
	// ErrRenderDisabled means no renderer or template is configured
	ErrRenderDisabled = errors.New("image render disabled")
)

// Options are passed through to the screenshot backend
type Options struct {
	FullPage bool   `json:"full_page"`
	Type     string `json:"type"`
	Quality  int    `json:"quality"`
}

// DayImageOptions match what the day template is designed for
var DayImageOptions = Options{FullPage: true, Type: "jpeg", Quality: 85}

// ImageRenderer turns an HTML template and its data into an image URL.
// The chat host provides it.
type ImageRenderer interface {
	Render(ctx context.Context, tmpl string, data interface{}, opts Options) (string, error)
}

// Renderer renders day schedules as images, using plain text as the fallback
type Renderer struct {
	images      ImageRenderer
	dayTemplate string
}

// NewRenderer creates a Renderer. images may be nil.
func NewRenderer(images ImageRenderer, dayTemplate string) *Renderer {
	return &Renderer{
		images:      images,
		dayTemplate: dayTemplate,
	}
}

// ImageEnabled reports whether RenderDayImage can succeed at all
func (r *Renderer) ImageEnabled() bool {
	return r != nil && r.images != nil && r.dayTemplate != ""
}

// RenderDayImage renders the day template. Any error wraps
// ErrRenderFailed or ErrRenderDisabled; callers fall back to text.
func (r *Renderer) RenderDayImage(ctx context.Context, heading, dateText, weekdayText string, items []model.RenderItem) (string, error) {
	if !r.ImageEnabled() {
		return "", ErrRenderDisabled
	}

	data := model.DayImageData{
		Heading:     heading,
		DateText:    dateText,
		WeekdayText: weekdayText,
		Count:       len(items),
		Items:       items,
	}
	url, err := r.images.Render(ctx, r.dayTemplate, data, DayImageOptions)
	if err != nil {
		if errors.Is(err, ErrRenderFailed) || errors.Is(err, ErrRenderDisabled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("%w: empty image url", ErrRenderFailed)
	}
	return url, nil
}

// DefaultDayTemplate returns the embedded day template
func DefaultDayTemplate() string {
	data, err := templates.ReadFile("templates/bangumi_day.html")
	if err != nil {
		return ""
	}
	return string(data)
}

// LoadDayTemplate reads the template at path, or the embedded one when
// path is empty. A read failure is logged and yields "", which disables
// image rendering.
func LoadDayTemplate(ctx context.Context, path string) string {
	if strings.TrimSpace(path) == "" {
		return DefaultDayTemplate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("path", path).Msg("Failed to load day template")
		return ""
	}
	return string(data)
}

// T2IRenderer calls a text-to-image service:
//
//	POST {endpoint}/generate {"tmpl": ..., "tmpldata": ..., "json": true, "options": ...}
//	-> {"data": {"id": "abc.jpeg"}}, image at {endpoint}/abc.jpeg
type T2IRenderer struct {
	client   *httpclient.Client
	endpoint string
}

// NewT2IRenderer creates a T2IRenderer. An empty endpoint disables it.
func NewT2IRenderer(client *httpclient.Client, endpoint string) *T2IRenderer {
	return &T2IRenderer{
		client:   client,
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
	}
}

// Enabled reports whether an endpoint is configured
func (t *T2IRenderer) Enabled() bool {
	return t.endpoint != ""
}

// Render implements ImageRenderer
func (t *T2IRenderer) Render(ctx context.Context, tmpl string, data interface{}, opts Options) (string, error) {
	if !t.Enabled() {
		return "", ErrRenderDisabled
	}

	payload := map[string]interface{}{
		"tmpl":     tmpl,
		"tmpldata": data,
		"json":     true,
		"options":  opts,
	}
	resp, err := t.client.PostJSON(ctx, t.endpoint+"/generate", payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrRenderFailed, resp.StatusCode, httpclient.Snippet(resp.Body, 200))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", ErrRenderFailed, err)
	}
	if result.Data.ID == "" {
		return "", fmt.Errorf("%w: response has no image id", ErrRenderFailed)
	}
	return t.endpoint + "/" + strings.TrimLeft(result.Data.ID, "/"), nil
}
