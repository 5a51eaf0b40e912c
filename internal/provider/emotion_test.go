package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"meethub/internal/config"
)

func TestParseEmotionScoresKeepsWireOrder(t *testing.T) {
	body := `[{"faceId":"abc","faceAttributes":{"emotion":{"anger":0.01,"happiness":0.62,"neutral":0.35,"surprise":0.02}}}]`

	scores, err := parseEmotionScores(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(scores) != 4 {
		t.Fatalf("score count: want=4 got=%d", len(scores))
	}
	wantLabels := []string{"anger", "happiness", "neutral", "surprise"}
	for i, label := range wantLabels {
		if scores[i].Label != label {
			t.Fatalf("position %d: want=%s got=%s", i, label, scores[i].Label)
		}
	}
	if scores[1].Score != 0.62 {
		t.Fatalf("happiness score: got=%v", scores[1].Score)
	}
}

func TestParseEmotionScoresNoFace(t *testing.T) {
	scores, err := parseEmotionScores(strings.NewReader(`[]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if scores != nil {
		t.Fatalf("want nil scores for empty detection, got %v", scores)
	}
}

func TestParseEmotionScoresMalformed(t *testing.T) {
	if _, err := parseEmotionScores(strings.NewReader(`{"emotion": 42}`)); err == nil {
		t.Fatal("want error for non-object emotion value")
	}
}

func TestDetectSendsFrameWithKey(t *testing.T) {
	var gotPath, gotKey, gotType string
	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotType = r.Header.Get("Content-Type")
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		gotLen = n
		w.Write([]byte(`[{"faceAttributes":{"emotion":{"sadness":0.9,"neutral":0.1}}}]`))
	}))
	defer srv.Close()

	client := NewFaceEmotionClient(&config.AIConfig{
		EmotionEndpoint: srv.URL,
		EmotionKey:      "k-123",
	}, time.Second)

	scores, err := client.Detect(context.Background(), []byte("jpegbytes"))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if gotPath != "/face/v1.0/detect" {
		t.Fatalf("path: %s", gotPath)
	}
	if gotKey != "k-123" || gotType != "application/octet-stream" {
		t.Fatalf("headers: key=%s type=%s", gotKey, gotType)
	}
	if gotLen != len("jpegbytes") {
		t.Fatalf("body length: %d", gotLen)
	}
	if len(scores) != 2 || scores[0].Label != "sadness" {
		t.Fatalf("scores: %v", scores)
	}
}

func TestDetectNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewFaceEmotionClient(&config.AIConfig{
		EmotionEndpoint: srv.URL,
		EmotionKey:      "k",
	}, time.Second)

	if _, err := client.Detect(context.Background(), []byte("x")); err == nil {
		t.Fatal("want error on 429 response")
	}
}

func TestDetectUnconfiguredReturnsNeutralMock(t *testing.T) {
	client := NewFaceEmotionClient(&config.AIConfig{}, time.Second)

	scores, err := client.Detect(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(scores) != 1 || scores[0].Label != "neutral" || scores[0].Score != 1 {
		t.Fatalf("mock scores: %v", scores)
	}
}
