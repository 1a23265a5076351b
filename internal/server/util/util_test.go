package util

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/kwenta-ph/kwenta/backend/pkg/ai"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

func TestSSEWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	s := NewSSEWriter(rec)
	if err := s.Event("token", map[string]string{"content": "hi"}); err != nil {
		t.Fatalf("Event: %v", err)
	}
	if err := s.Event("done", map[string]int{"n": 1}); err != nil {
		t.Fatalf("Event: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	want := "event: token\ndata: {\"content\":\"hi\"}\n\nevent: done\ndata: {\"n\":1}\n\n"
	if rec.Body.String() != want {
		t.Fatalf("unexpected stream %q", rec.Body.String())
	}
	if !rec.Flushed {
		t.Fatalf("events were not flushed")
	}

	var events []string
	sc := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	for sc.Scan() {
		if name, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
			events = append(events, name)
		}
	}
	if strings.Join(events, ",") != "token,done" {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestFromError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("get: %w", common.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{fmt.Errorf("%w: bad id", common.ErrMalformedInput), http.StatusBadRequest, CodeBadRequest},
		{common.StoreError("search", errors.New("conn reset")), http.StatusServiceUnavailable, CodeStoreUnavailable},
		{ai.ErrNotConfigured, http.StatusServiceUnavailable, CodeServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if err := FromError(c, tc.err); err != nil {
			t.Fatalf("FromError: %v", err)
		}
		if rec.Code != tc.status {
			t.Fatalf("%v: got status %d, want %d", tc.err, rec.Code, tc.status)
		}
		if !strings.Contains(rec.Body.String(), `"code":"`+tc.code+`"`) {
			t.Fatalf("%v: unexpected body %s", tc.err, rec.Body.String())
		}
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ v, want int }{{0, 20}, {-3, 1}, {5, 5}, {500, 100}}
	for _, tc := range cases {
		if got := Clamp(tc.v, 20, 1, 100); got != tc.want {
			t.Fatalf("Clamp(%d) = %d, want %d", tc.v, got, tc.want)
		}
	}
	if !QueryBool("true") || QueryBool("nope") || QueryBool("") {
		t.Fatalf("unexpected QueryBool results")
	}
}
