package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"meethub/internal/config"
)

// FaceEmotionClient calls a face-analysis API that returns per-emotion
// scores for the largest detected face. When unconfigured it returns a
// neutral mock reading.
type FaceEmotionClient struct {
	cfg    *config.AIConfig
	client *http.Client
}

func NewFaceEmotionClient(cfg *config.AIConfig, timeout time.Duration) *FaceEmotionClient {
	return &FaceEmotionClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *FaceEmotionClient) Detect(ctx context.Context, image []byte) ([]EmotionScore, error) {
	if !c.cfg.EmotionEnabled() {
		return []EmotionScore{{Label: "neutral", Score: 1}}, nil
	}

	url := c.cfg.EmotionEndpoint + "/face/v1.0/detect?returnFaceAttributes=emotion"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("create emotion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.EmotionKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("emotion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("emotion status %d: %s", resp.StatusCode, errBody)
	}

	return parseEmotionScores(resp.Body)
}

// parseEmotionScores walks the response tokens and decodes the first
// "emotion" object it finds, preserving the key order of the wire
// payload. encoding/json maps would randomize that order and make
// tie-breaking between equal scores nondeterministic.
func parseEmotionScores(r io.Reader) ([]EmotionScore, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, nil // no face detected
		}
		if err != nil {
			return nil, fmt.Errorf("decode emotion response: %w", err)
		}
		if key, ok := tok.(string); ok && key == "emotion" {
			return decodeScoreObject(dec)
		}
	}
}

func decodeScoreObject(dec *json.Decoder) ([]EmotionScore, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode emotion object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("unexpected emotion payload")
	}

	var scores []EmotionScore
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode emotion label: %w", err)
		}
		label, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected emotion label token")
		}
		valTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode emotion score: %w", err)
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return nil, fmt.Errorf("unexpected emotion score token")
		}
		score, err := num.Float64()
		if err != nil {
			return nil, fmt.Errorf("parse emotion score: %w", err)
		}
		scores = append(scores, EmotionScore{Label: label, Score: score})
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return nil, fmt.Errorf("decode emotion object: %w", err)
	}
	return scores, nil
}
