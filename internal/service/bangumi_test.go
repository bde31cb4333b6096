package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"bangumi-calendar-service/pkg/httpclient"
)

func newTestService(t *testing.T, h http.HandlerFunc) *BangumiService {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewBangumiService(httpclient.NewClient("test-agent", 2*time.Second), server.URL+"/")
}

func TestFetchCalendar_DropsNonObjectsAndKeepsOrder(t *testing.T) {
	t.Parallel()

	var gotUA string
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path != "/calendar" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"weekday":{"id":1}}, 3, "x", null, {"weekday":{"id":2}}, []]`))
	})

	days, err := s.FetchCalendar(context.Background())
	if err != nil {
		t.Fatalf("FetchCalendar returned error: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("len(days) = %d, want 2", len(days))
	}
	if id, _ := ResolveWeekday(days[0]); id != 1 {
		t.Fatalf("days[0] weekday = %d, want 1", id)
	}
	if id, _ := ResolveWeekday(days[1]); id != 2 {
		t.Fatalf("days[1] weekday = %d, want 2", id)
	}
	if gotUA != "test-agent" {
		t.Fatalf("User-Agent = %q", gotUA)
	}
}

func TestFetchCalendar_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
		invalid  bool
	}{
		{"bad status", http.StatusBadGateway, "oops", KindBadStatus, false},
		{"invalid json", http.StatusOK, "{not-json", KindMalformedPayload, true},
		{"object payload", http.StatusOK, `{"a":1}`, KindMalformedPayload, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := s.FetchCalendar(context.Background())
			if err == nil {
				t.Fatalf("FetchCalendar returned nil error")
			}
			if KindOf(err) != tc.wantKind {
				t.Fatalf("KindOf = %v, want %v (%v)", KindOf(err), tc.wantKind, err)
			}
			if IsInvalidJSON(err) != tc.invalid {
				t.Fatalf("IsInvalidJSON = %v, want %v", IsInvalidJSON(err), tc.invalid)
			}
		})
	}
}

func TestFetchCalendar_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	s := NewBangumiService(httpclient.NewClient("", 50*time.Millisecond), server.URL)
	_, err := s.FetchCalendar(context.Background())
	if KindOf(err) != KindTimeout {
		t.Fatalf("KindOf = %v, want timeout (%v)", KindOf(err), err)
	}
}

func TestSearchSubjects_PostBody(t *testing.T) {
	t.Parallel()

	var body map[string]any
	var query map[string][]string
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected %s request", r.Method)
			http.Error(w, "no", http.StatusMethodNotAllowed)
			return
		}
		query = r.URL.Query()
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		_, _ = w.Write([]byte(`{"data":[{"id":1},{"id":2}],"total":"57"}`))
	})

	items, total, err := s.SearchSubjects(context.Background(), "进击", 10, 20)
	if err != nil {
		t.Fatalf("SearchSubjects returned error: %v", err)
	}
	if len(items) != 2 || total != 57 {
		t.Fatalf("got %d items total=%d, want 2/57", len(items), total)
	}
	if query["limit"][0] != "10" || query["offset"][0] != "20" {
		t.Fatalf("query = %v", query)
	}
	if body["keyword"] != "进击" || body["sort"] != "rank" {
		t.Fatalf("body = %v", body)
	}
	filter, _ := body["filter"].(map[string]any)
	types, _ := filter["type"].([]any)
	if len(types) != 1 || types[0] != float64(2) {
		t.Fatalf("filter = %v, want type [2]", body["filter"])
	}
}

func TestSearchSubjects_FallsBackToGet(t *testing.T) {
	t.Parallel()

	var gets int
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		gets++
		q := r.URL.Query()
		if q.Get("keyword") != "eva" || q.Get("type") != "2" || q.Get("limit") != "5" || q.Get("offset") != "0" {
			t.Errorf("GET query = %v", q)
		}
		_, _ = w.Write([]byte(`{"list":[{"id":1},"junk"]}`))
	})

	items, total, err := s.SearchSubjects(context.Background(), "eva", 5, 0)
	if err != nil {
		t.Fatalf("SearchSubjects returned error: %v", err)
	}
	if gets != 1 {
		t.Fatalf("GET calls = %d, want 1", gets)
	}
	if len(items) != 2 || total != 2 {
		t.Fatalf("got %d items total=%d, want 2/2", len(items), total)
	}
}

func TestSearchSubjects_FallsBackToGetOnTransportError(t *testing.T) {
	t.Parallel()

	var posts, gets atomic.Int32
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
			// 直接断开连接，不写任何响应
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Errorf("response writer cannot hijack")
				return
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Errorf("Hijack: %v", err)
				return
			}
			_ = conn.Close()
			return
		}
		gets.Add(1)
		if q := r.URL.Query(); q.Get("keyword") != "eva" || q.Get("type") != "2" {
			t.Errorf("GET query = %v", q)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":1},{"id":2}],"total":9}`))
	})

	items, total, err := s.SearchSubjects(context.Background(), "eva", 5, 0)
	if err != nil {
		t.Fatalf("SearchSubjects returned error: %v", err)
	}
	if posts.Load() != 1 || gets.Load() != 1 {
		t.Fatalf("POST calls = %d, GET calls = %d, want 1/1", posts.Load(), gets.Load())
	}
	if len(items) != 2 || total != 9 {
		t.Fatalf("got %d items total=%d, want 2/9", len(items), total)
	}
}

func TestSearchSubjects_Errors(t *testing.T) {
	t.Parallel()

	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Error(w, "busy", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	_, _, err := s.SearchSubjects(context.Background(), "x", 5, 0)
	if KindOf(err) != KindMalformedPayload {
		t.Fatalf("KindOf = %v, want malformed (%v)", KindOf(err), err)
	}

	s = newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	_, _, err = s.SearchSubjects(context.Background(), "x", 5, 0)
	var se *Error
	if !errors.As(err, &se) || se.Kind != KindBadStatus || se.StatusCode != http.StatusBadGateway {
		t.Fatalf("err = %v, want bad status 502", err)
	}
}

func TestFetchSubjectDetail(t *testing.T) {
	t.Parallel()

	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v0/subjects/1":
			_, _ = w.Write([]byte(`{"id":1,"name":"Cowboy Bebop"}`))
		case "/v0/subjects/2":
			http.NotFound(w, r)
		case "/v0/subjects/3":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/v0/subjects/4":
			_, _ = w.Write([]byte(`[1,2]`))
		}
	})
	ctx := context.Background()

	rec, err := s.FetchSubjectDetail(ctx, 1)
	if err != nil {
		t.Fatalf("FetchSubjectDetail returned error: %v", err)
	}
	if name, _ := rec.String("name"); name != "Cowboy Bebop" {
		t.Fatalf("name = %q", name)
	}

	_, err = s.FetchSubjectDetail(ctx, 2)
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}

	_, err = s.FetchSubjectDetail(ctx, 3)
	if KindOf(err) != KindBadStatus || IsNotFound(err) {
		t.Fatalf("err = %v, want bad status", err)
	}

	_, err = s.FetchSubjectDetail(ctx, 4)
	if KindOf(err) != KindMalformedPayload {
		t.Fatalf("err = %v, want malformed", err)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(nil) != KindUnknown {
		t.Fatalf("KindOf(nil) != unknown")
	}
	if KindOf(errors.New("x")) != KindUnknown {
		t.Fatalf("KindOf(plain) != unknown")
	}
	if KindOf(context.DeadlineExceeded) != KindTimeout {
		t.Fatalf("KindOf(deadline) != timeout")
	}
	wrapped := &Error{Kind: KindNetwork, Op: "op", Err: errors.New("reset")}
	if got := wrapped.Error(); got != "op: network: reset" {
		t.Fatalf("Error() = %q", got)
	}
}
