package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStartUnconfigured(t *testing.T) {
	tr := NewWhisperTranscriber("", time.Second)

	if _, err := tr.Start(context.Background(), "m1"); !errors.Is(err, ErrTranscriberUnconfigured) {
		t.Fatalf("want ErrTranscriberUnconfigured, got %v", err)
	}
}

func TestFeedPostsChunkAndDeliversFragment(t *testing.T) {
	var gotPath string
	var gotChunk []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotChunk, _ = io.ReadAll(file)
		w.Write([]byte(`{"text":"good morning"}`))
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber(srv.URL, time.Second)
	stream, err := tr.Start(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stream.Close()

	if err := stream.Feed(context.Background(), []byte("pcm-audio")); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if gotPath != "/inference" {
		t.Fatalf("path: %s", gotPath)
	}
	if string(gotChunk) != "pcm-audio" {
		t.Fatalf("chunk: %q", gotChunk)
	}

	select {
	case frag := <-stream.Fragments():
		if frag.Text != "good morning" {
			t.Fatalf("fragment: %q", frag.Text)
		}
	case <-time.After(time.Second):
		t.Fatal("no fragment delivered")
	}
}

func TestFeedSilenceProducesNoFragment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":""}`))
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber(srv.URL, time.Second)
	stream, _ := tr.Start(context.Background(), "m1")
	defer stream.Close()

	if err := stream.Feed(context.Background(), []byte("silence")); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	select {
	case frag := <-stream.Fragments():
		t.Fatalf("unexpected fragment: %q", frag.Text)
	default:
	}
}

func TestFeedNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber(srv.URL, time.Second)
	stream, _ := tr.Start(context.Background(), "m1")
	defer stream.Close()

	if err := stream.Feed(context.Background(), []byte("x")); err == nil {
		t.Fatal("want error on 503 response")
	}
}

func TestCloseIsIdempotentAndEndsFragments(t *testing.T) {
	tr := NewWhisperTranscriber("http://unused.invalid", time.Second)
	stream, err := tr.Start(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, open := <-stream.Fragments(); open {
		t.Fatal("fragment channel still open after Close")
	}
	if err := stream.Feed(context.Background(), []byte("x")); err == nil {
		t.Fatal("want error feeding a closed stream")
	}
}
