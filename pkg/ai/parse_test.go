package ai

import (
	"errors"
	"testing"
)

type testUnit struct {
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
}

func TestParseJSONArrayPlain(t *testing.T) {
	got, err := ParseJSONArray[testUnit](`[{"title":"Go","confidence":0.9}]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Go" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestParseJSONArrayFenced(t *testing.T) {
	raw := "```json\n[{\"title\":\"Go\",\"confidence\":0.9}]\n```"
	got, err := ParseJSONArray[testUnit](raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
}

func TestParseJSONArraySalvage(t *testing.T) {
	raw := "Here are the units:\n[{\"title\":\"Go\",\"confidence\":0.9}]\nHope this helps!"
	got, err := ParseJSONArray[testUnit](raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
}

func TestParseJSONArrayMalformed(t *testing.T) {
	_, err := ParseJSONArray[testUnit]("sorry, I cannot help with that")
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestParseJSONObjectSalvage(t *testing.T) {
	var out struct {
		Decision string `json:"decision"`
	}
	raw := "The answer is {\"decision\":\"merge\"} as explained above."
	if err := ParseJSONObject(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.Decision != "merge" {
		t.Fatalf("unexpected decision %q", out.Decision)
	}
}

func TestBuildPromptUnbound(t *testing.T) {
	_, err := BuildPrompt("analyze ${content} in ${lang}", map[string]string{
		PROMPT_VAR_CONTENT: "text",
	})
	if !errors.Is(err, ErrMissingPromptContext) {
		t.Fatalf("expected ErrMissingPromptContext, got %v", err)
	}
}

func TestBuildPromptComplete(t *testing.T) {
	got, err := BuildPrompt("analyze ${content}", map[string]string{
		PROMPT_VAR_CONTENT: "some text",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "analyze some text" {
		t.Fatalf("unexpected prompt %q", got)
	}
}
