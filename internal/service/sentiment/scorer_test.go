package sentiment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"FinCache/pkg/retry"
)

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+3", "+3"},
		{"-7", "-7"},
		{" +10 ", "+10"},
		{"Verdict: -2.", "-2"},
		{"not relevant", "not relevant"},
		{"This article is Not Relevant to the topic.", "not relevant"},
		{"somewhat positive", "not relevant"},
		{"", "not relevant"},
	}
	for _, tc := range cases {
		if got := parseVerdict(tc.in); got != tc.want {
			t.Errorf("parseVerdict(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Fatalf("encode reply: %v", err)
	}
}

func TestScoreParsesModelOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "+4")
	}))
	defer srv.Close()

	s := New(srv.URL, "key", "test-model", retry.Policy{MaxAttempts: 1, Delay: time.Millisecond})
	got, err := s.Score(context.Background(), "chips up", "more chips", "nvidia")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if got != "+4" {
		t.Fatalf("verdict = %q, want +4", got)
	}
}

func TestScoreRetriesQuota(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		chatReply(t, w, "-1")
	}))
	defer srv.Close()

	s := New(srv.URL, "key", "test-model", retry.Policy{MaxAttempts: 3, Delay: time.Millisecond})
	got, err := s.Score(context.Background(), "t", "d", "nvidia")
	if err != nil {
		t.Fatalf("Score after retries: %v", err)
	}
	if calls != 3 || got != "-1" {
		t.Fatalf("calls = %d verdict = %q", calls, got)
	}
}

func TestScoreFailsWithoutKey(t *testing.T) {
	s := New("http://unused", "", "m", retry.Policy{MaxAttempts: 1, Delay: time.Millisecond})
	if _, err := s.Score(context.Background(), "t", "d", "topic"); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestScoreDoesNotRetryHardFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := New(srv.URL, "key", "m", retry.Policy{MaxAttempts: 3, Delay: time.Millisecond})
	if _, err := s.Score(context.Background(), "t", "d", "topic"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, a rejected request must not be retried", calls)
	}
}
