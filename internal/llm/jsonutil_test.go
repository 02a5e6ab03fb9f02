package llm

import "testing"

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"prose around", `Sure! Here you go: {"a":{"b":2}} hope it helps`, `{"a":{"b":2}}`},
		{"brace in string", `x {"a":"}{"} y`, `{"a":"}{"}`},
		{"escaped quote", `{"a":"say \"hi\" }"}`, `{"a":"say \"hi\" }"}`},
		{"unterminated", `{"a":1`, ``},
		{"none", `no json here`, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSONObject(tt.in); got != tt.want {
				t.Errorf("ExtractJSONObject(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeJSONObject(t *testing.T) {
	type payload struct {
		Score int `json:"score"`
	}
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{"raw", `{"score": 7}`, 7, false},
		{"fenced", "```json\n{\"score\": 8}\n```", 8, false},
		{"bare fence", "```\n{\"score\": 5}\n```", 5, false},
		{"embedded", `Rating: {"score": 4} done`, 4, false},
		{"empty", "   ", 0, true},
		{"garbage", "not json at all", 0, true},
		{"array only", `[1,2,3]`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			err := DecodeJSONObject(tt.in, &p)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", p)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Score != tt.want {
				t.Errorf("score = %d, want %d", p.Score, tt.want)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	if got := StripCodeFence("```json\n{}\n```"); got != "{}" {
		t.Errorf("got %q", got)
	}
	if got := StripCodeFence("  plain  "); got != "plain" {
		t.Errorf("got %q", got)
	}
}
