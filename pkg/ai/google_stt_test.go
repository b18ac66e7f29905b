package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/johnquangdev/playcoach/pkg/config"
)

func TestGoogleSTTTranscribe_PollsUntilDone(t *testing.T) {
	var polls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "AIzaTestKey" {
			t.Errorf("missing api key")
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/speech:longrunningrecognize":
			var req googleRecognizeRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("invalid payload: %v", err)
			}
			if !req.Config.DiarizationConfig.EnableSpeakerDiarization || !req.Config.EnableWordTimeOffsets {
				t.Errorf("diarization not requested: %+v", req.Config)
			}
			if len(req.Config.SpeechContexts) != 1 || req.Config.SpeechContexts[0].Phrases[0] != "blocks" {
				t.Errorf("keyword hints not forwarded: %+v", req.Config.SpeechContexts)
			}
			w.Write([]byte(`{"name":"op-1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/operations/op-1":
			if atomic.AddInt32(&polls, 1) == 1 {
				w.Write([]byte(`{"name":"op-1","done":false}`))
				return
			}
			w.Write([]byte(`{"name":"op-1","done":true,"response":{"results":[
				{"alternatives":[{"transcript":"partial"}]},
				{"alternatives":[{"words":[
					{"startTime":"0s","endTime":"0.400s","word":"Nice","speakerTag":1},
					{"startTime":"0.400s","endTime":"1.100s","word":"tower","speakerTag":1},
					{"startTime":"1.500s","endTime":"2s","word":"Yeah","speakerTag":2}
				]}]}
			]}}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	tr, err := NewGoogleSTTTranscriber(context.Background(), config.GoogleSTTConfig{
		Credentials:  "AIzaTestKey",
		Endpoint:     ts.URL,
		LanguageCode: "en-US",
	}, nil)
	if err != nil {
		t.Fatalf("NewGoogleSTTTranscriber() error: %v", err)
	}
	tr.pollInterval = time.Millisecond

	out, err := tr.Transcribe(context.Background(), []byte("audio"), TranscribeOptions{KeywordHints: []string{"blocks"}})
	if err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}
	if out.Granularity != GranularityWord || len(out.Words) != 3 {
		t.Fatalf("unexpected transcription: %+v", out)
	}
	if out.Words[1].End != 1.1 || out.Words[2].Speaker != "2" {
		t.Fatalf("unexpected words: %+v", out.Words)
	}
	if len(out.Raw) == 0 {
		t.Fatal("raw response not kept")
	}
}

func TestGoogleSTTTranscribe_OperationError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"name":"op-2"}`))
			return
		}
		w.Write([]byte(`{"name":"op-2","done":true,"error":{"code":3,"message":"bad audio","status":"INVALID_ARGUMENT"}}`))
	}))
	defer ts.Close()

	tr, err := NewGoogleSTTTranscriber(context.Background(), config.GoogleSTTConfig{Credentials: "AIzaTestKey", Endpoint: ts.URL}, nil)
	if err != nil {
		t.Fatalf("NewGoogleSTTTranscriber() error: %v", err)
	}
	tr.pollInterval = time.Millisecond

	if _, err := tr.Transcribe(context.Background(), []byte("audio"), TranscribeOptions{}); err == nil {
		t.Fatal("expected operation error")
	}
}

func TestParseGoogleDuration(t *testing.T) {
	cases := map[string]float64{"": 0, "0s": 0, "1.500s": 1.5, "12s": 12}
	for in, want := range cases {
		got, err := parseGoogleDuration(in)
		if err != nil || got != want {
			t.Errorf("parseGoogleDuration(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := parseGoogleDuration("abc"); err == nil {
		t.Error("expected error for malformed duration")
	}
}
