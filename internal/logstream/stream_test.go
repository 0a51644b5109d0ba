package logstream_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tome/internal/ipc"
	"tome/internal/logs"
	"tome/internal/logstream"
)

type tailStub struct {
	lines []string
	calls int
}

func (s *tailStub) LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error) {
	s.calls++
	return &ipc.LogTailResponse{Lines: s.lines, Offset: 10}, nil
}

func unreachableClient(t *testing.T) *logs.StreamClient {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	client, err := logs.NewStreamClient(url)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	return client
}

func TestStreamFallsBackToLegacyTail(t *testing.T) {
	legacy := &tailStub{lines: []string{"one", "two"}}

	var got []string
	printed, err := logstream.Stream(context.Background(), unreachableClient(t), legacy, logstream.Options{Lines: 2}, nil, func(line string) {
		got = append(got, line)
	})
	if err != nil {
		t.Fatalf("Stream error: %v", err)
	}
	if !printed {
		t.Fatal("expected printed=true")
	}
	if legacy.calls != 1 {
		t.Fatalf("expected one legacy call, got %d", legacy.calls)
	}
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("unexpected lines: %#v", got)
	}
}

func TestStreamFiltersRequireAPI(t *testing.T) {
	legacy := &tailStub{lines: []string{"one"}}

	opts := logstream.Options{Filters: logstream.Filters{Component: "workflow"}}
	_, err := logstream.Stream(context.Background(), unreachableClient(t), legacy, opts, nil, nil)
	if !errors.Is(err, logstream.ErrFiltersRequireAPI) {
		t.Fatalf("expected ErrFiltersRequireAPI, got %v", err)
	}
	if legacy.calls != 0 {
		t.Fatalf("expected no legacy calls, got %d", legacy.calls)
	}
}

func TestStreamWithoutLegacyClient(t *testing.T) {
	_, err := logstream.Stream(context.Background(), unreachableClient(t), nil, logstream.Options{}, nil, nil)
	if !errors.Is(err, logs.ErrAPIUnavailable) {
		t.Fatalf("expected ErrAPIUnavailable, got %v", err)
	}
}
