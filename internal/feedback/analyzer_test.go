package feedback

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/hurttlocker/ratemyfit/internal/llm"
)

type fakeVision struct {
	reply  string
	err    error
	img    llm.Image
	prompt string
	opts   llm.CompletionOpts
}

func (f *fakeVision) Name() string { return "fake/vision" }

func (f *fakeVision) Complete(ctx context.Context, prompt string, opts llm.CompletionOpts) (string, error) {
	return f.reply, f.err
}

func (f *fakeVision) CompleteWithImage(ctx context.Context, prompt string, img llm.Image, opts llm.CompletionOpts) (string, error) {
	f.img = img
	f.prompt = prompt
	f.opts = opts
	return f.reply, f.err
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestAnalyzerHappyPath(t *testing.T) {
	v := &fakeVision{reply: `{"score": 8, "feedback": "Great proportions and the camel coat anchors the look.", "suggestions": ["Add a silk scarf"]}`}
	a := NewAnalyzer(v, WithStyleAnalysis(false))

	res := a.Analyze(context.Background(), AnalysisRequest{
		ImageBase64:  base64.StdEncoding.EncodeToString(pngHeader),
		Gender:       "female",
		EventContext: "gallery opening",
	})
	if res.Path != PathStrict {
		t.Fatalf("path = %q, problems %v", res.Path, res.Problems)
	}
	if res.Response.Score != 8 {
		t.Errorf("score = %d", res.Response.Score)
	}
	if v.img.MIMEType != "image/png" {
		t.Errorf("mime = %q, want image/png", v.img.MIMEType)
	}
	if !strings.Contains(v.prompt, "gallery opening") || !strings.Contains(v.prompt, "female") {
		t.Errorf("prompt missing request context: %q", v.prompt)
	}
	if v.opts.Format != "json" {
		t.Errorf("expected JSON mode")
	}
	if strings.Contains(v.prompt, "styleAnalysis") {
		t.Error("style analysis should not be requested")
	}
}

func TestAnalyzerDataURL(t *testing.T) {
	v := &fakeVision{reply: "not json"}
	a := NewAnalyzer(v)
	a.Analyze(context.Background(), AnalysisRequest{
		ImageBase64: "data:image/webp;base64," + base64.StdEncoding.EncodeToString([]byte("webpdata")),
	})
	if v.img.MIMEType != "image/webp" || string(v.img.Data) != "webpdata" {
		t.Errorf("unexpected image %+v", v.img)
	}
}

func TestAnalyzerUpstreamErrorFallsBack(t *testing.T) {
	v := &fakeVision{err: errors.New("503 upstream")}
	res := NewAnalyzer(v).Analyze(context.Background(), AnalysisRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(pngHeader),
		Mode:        ModeRoast,
	})
	if res.Path != PathFallback {
		t.Fatalf("path = %q, want fallback", res.Path)
	}
	if len(res.Problems) == 0 || !strings.Contains(res.Problems[0], "503 upstream") {
		t.Errorf("problems should start with the upstream cause: %v", res.Problems)
	}
	if res.Response.StyleAnalysis != nil {
		t.Error("roast fallback must omit style analysis")
	}
	if !strings.Contains(v.prompt, "roast") {
		t.Errorf("roast tone missing from prompt")
	}
}

func TestAnalyzerBadImage(t *testing.T) {
	v := &fakeVision{reply: "{}"}
	for _, img := range []string{"", "data:image/png;base64", "!!!not base64!!!"} {
		res := NewAnalyzer(v).Analyze(context.Background(), AnalysisRequest{ImageBase64: img})
		if res.Path != PathFallback {
			t.Errorf("image %q: path = %q, want fallback", img, res.Path)
		}
		assertSchemaValid(t, res.Response)
	}
}

func TestAnalyzerNilProvider(t *testing.T) {
	res := NewAnalyzer(nil).Analyze(context.Background(), AnalysisRequest{ImageBase64: "aGVsbG8="})
	if res.Path != PathFallback {
		t.Fatalf("path = %q", res.Path)
	}
	assertPalette(t, res.Response.StyleAnalysis)
}
