package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bangumi-calendar-service/internal/model"
	"bangumi-calendar-service/pkg/httpclient"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public Bangumi API
const DefaultBaseURL = "https://api.bgm.tv"

// animeSubjectType is the Bangumi subject type for anime
const animeSubjectType = 2

// bodyLogLimit caps how much of an error body is logged
const bodyLogLimit = 300

// BangumiService handles Bangumi API interactions
type BangumiService struct {
	client  *httpclient.Client
	baseURL string
}

// NewBangumiService creates a new BangumiService
func NewBangumiService(client *httpclient.Client, baseURL string) *BangumiService {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &BangumiService{
		client:  client,
		baseURL: baseURL,
	}
}

// BaseURL returns the API root in use
func (s *BangumiService) BaseURL() string {
	return s.baseURL
}

// FetchCalendar gets the weekly broadcast calendar.
// Non-object elements are dropped; order is preserved.
func (s *BangumiService) FetchCalendar(ctx context.Context) ([]model.CalendarDay, error) {
	const op = "fetch calendar"
	logger := zerolog.Ctx(ctx)

	resp, err := s.client.Get(ctx, s.baseURL+"/calendar")
	if err != nil {
		logger.Error().Err(err).Msg("Calendar API request failed")
		return nil, transportError(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		logger.Error().
			Int("status", resp.StatusCode).
			Str("body", httpclient.Snippet(resp.Body, bodyLogLimit)).
			Msg("Calendar API returned non-200 status")
		return nil, &Error{Kind: KindBadStatus, Op: op, StatusCode: resp.StatusCode}
	}

	payload, err := decode(resp.Body)
	if err != nil {
		logger.Error().Err(err).Msg("Calendar API JSON parse failed")
		return nil, &Error{Kind: KindMalformedPayload, Op: op, Err: err}
	}

	list, ok := payload.([]any)
	if !ok {
		logger.Error().Str("type", jsonType(payload)).Msg("Calendar API payload is not a list")
		return nil, &Error{Kind: KindMalformedPayload, Op: op, Err: errNotArray}
	}

	days := make([]model.CalendarDay, 0, len(list))
	for _, entry := range list {
		if rec, ok := model.AsRecord(entry); ok {
			days = append(days, model.CalendarDay(rec))
		}
	}

	logger.Debug().Int("days", len(days)).Msg("Fetched calendar")
	return days, nil
}

// SearchSubjects searches anime subjects by keyword.
// The POST search endpoint is tried first; any failure falls back to GET.
func (s *BangumiService) SearchSubjects(ctx context.Context, keyword string, limit, offset int) ([]any, int, error) {
	const op = "search subjects"
	logger := zerolog.Ctx(ctx).With().Str("keyword", keyword).Logger()

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	postURL := s.baseURL + "/v0/search/subjects?" + q.Encode()

	body := map[string]interface{}{
		"keyword": keyword,
		"sort":    "rank",
		"filter": map[string]interface{}{
			"type": []int{animeSubjectType},
		},
	}

	resp, err := s.client.PostJSON(ctx, postURL, body)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("Search POST failed, falling back to GET")
	case resp.StatusCode != http.StatusOK:
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", httpclient.Snippet(resp.Body, bodyLogLimit)).
			Msg("Search POST returned non-200 status, falling back to GET")
	}

	if err != nil || resp.StatusCode != http.StatusOK {
		q.Set("keyword", keyword)
		q.Set("type", strconv.Itoa(animeSubjectType))
		resp, err = s.client.Get(ctx, s.baseURL+"/v0/search/subjects?"+q.Encode())
		if err != nil {
			logger.Error().Err(err).Msg("Search GET request failed")
			return nil, 0, transportError(op, err)
		}
		if resp.StatusCode != http.StatusOK {
			logger.Error().
				Int("status", resp.StatusCode).
				Str("body", httpclient.Snippet(resp.Body, bodyLogLimit)).
				Msg("Search GET returned non-200 status")
			return nil, 0, &Error{Kind: KindBadStatus, Op: op, StatusCode: resp.StatusCode}
		}
	}

	payload, err := decode(resp.Body)
	if err != nil {
		logger.Error().Err(err).Msg("Search API JSON parse failed")
		return nil, 0, &Error{Kind: KindMalformedPayload, Op: op, Err: err}
	}
	rec, ok := model.AsRecord(payload)
	if !ok {
		logger.Error().Str("type", jsonType(payload)).Msg("Search API payload is not an object")
		return nil, 0, &Error{Kind: KindMalformedPayload, Op: op, Err: errNotObject}
	}

	items, ok := rec.List("data")
	if !ok {
		// 兼容旧版搜索接口
		items, ok = rec.List("list")
	}
	if !ok {
		logger.Error().Msg("Search API payload has no subject list")
		return nil, 0, &Error{Kind: KindMalformedPayload, Op: op, Err: errNoList}
	}

	total, ok := rec.Int("total")
	if !ok {
		total, ok = rec.Int("results")
	}
	if !ok {
		total = len(items)
	}

	logger.Debug().Int("count", len(items)).Int("total", total).Msg("Searched subjects")
	return items, total, nil
}

// FetchSubjectDetail gets a single subject.
// A 404 is reported as KindNotFound.
func (s *BangumiService) FetchSubjectDetail(ctx context.Context, id int) (model.Record, error) {
	const op = "fetch subject detail"
	logger := zerolog.Ctx(ctx).With().Int("subject_id", id).Logger()

	resp, err := s.client.Get(ctx, fmt.Sprintf("%s/v0/subjects/%d", s.baseURL, id))
	if err != nil {
		logger.Error().Err(err).Msg("Subject API request failed")
		return nil, transportError(op, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		logger.Warn().Msg("Subject not found")
		return nil, &Error{Kind: KindNotFound, Op: op, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		logger.Error().
			Int("status", resp.StatusCode).
			Str("body", httpclient.Snippet(resp.Body, bodyLogLimit)).
			Msg("Subject API returned non-200 status")
		return nil, &Error{Kind: KindBadStatus, Op: op, StatusCode: resp.StatusCode}
	}

	payload, err := decode(resp.Body)
	if err != nil {
		logger.Error().Err(err).Msg("Subject API JSON parse failed")
		return nil, &Error{Kind: KindMalformedPayload, Op: op, Err: err}
	}
	rec, ok := model.AsRecord(payload)
	if !ok {
		logger.Error().Str("type", jsonType(payload)).Msg("Subject API payload is not an object")
		return nil, &Error{Kind: KindMalformedPayload, Op: op, Err: errNotObject}
	}
	return rec, nil
}

// decode parses a JSON document, keeping numbers as json.Number
func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", errInvalidJSON)
	}
	return v, nil
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case string:
		return "string"
	case bool:
		return "bool"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
