package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lunarhue/promptii/backend/internal/model/conversation"
)

func TestParseQuestionsValidPayload(t *testing.T) {
	raw := `{"questions":[
		{"field":"role","question":"What role?","options":["Writer","Custom..."]},
		{"field":"task","question":"What task?","options":["Draft","Custom..."]}
	]}`
	qs, err := parseQuestions(raw)
	if err != nil {
		t.Fatalf("parseQuestions err: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if qs[0].Field != "role" || qs[1].Field != "task" {
		t.Fatalf("unexpected fields: %v", qs)
	}
}

func TestParseQuestionsFencedPayload(t *testing.T) {
	raw := "```json\n{\"questions\":[{\"field\":\"role\",\"question\":\"What role?\",\"options\":[\"Writer\"]}]}\n```"
	qs, err := parseQuestions(raw)
	if err != nil {
		t.Fatalf("parseQuestions err: %v", err)
	}
	if len(qs) != 1 || qs[0].Field != "role" {
		t.Fatalf("unexpected result: %v", qs)
	}
}

func TestParseQuestionsRejectsMalformedPayloads(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "sure, here are some questions"},
		{"empty set", `{"questions":[]}`},
		{"missing field", `{"questions":[{"question":"What role?"}]}`},
		{"missing question text", `{"questions":[{"field":"role"}]}`},
		{"duplicate field", `{"questions":[{"field":"role","question":"a"},{"field":"role","question":"b"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseQuestions(tc.raw); !errors.Is(err, ErrAdapter) {
				t.Fatalf("expected ErrAdapter, got %v", err)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Fatalf("stripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildComposeRequestWithoutAnswers(t *testing.T) {
	req := buildComposeRequest("write a poem", nil)
	if !strings.Contains(req, "No clarifying answers were provided.") {
		t.Fatal("empty answer set must be stated explicitly")
	}
	if !strings.Contains(req, artifactHeading) {
		t.Fatal("request must pin the artifact heading")
	}
	if !strings.Contains(req, `"write a poem"`) {
		t.Fatal("request must quote the idea")
	}
}

func TestBuildComposeRequestWithAnswers(t *testing.T) {
	answers := conversation.AnswerSet{"role": "Poet"}
	req := buildComposeRequest("write a poem", answers)
	if strings.Contains(req, "No clarifying answers were provided.") {
		t.Fatal("answered request must not claim answers are missing")
	}
	if !strings.Contains(req, "Role: Poet") {
		t.Fatal("answer lines must capitalize the field name")
	}
}

func TestUnconfiguredAdapterFailsWithErrAdapter(t *testing.T) {
	ctx := context.Background()
	var a Adapter = Unconfigured{}
	if _, err := a.ProposeQuestions(ctx, "idea"); !errors.Is(err, ErrAdapter) {
		t.Fatalf("expected ErrAdapter, got %v", err)
	}
	if _, err := a.ComposeArtifact(ctx, "idea", nil); !errors.Is(err, ErrAdapter) {
		t.Fatalf("expected ErrAdapter, got %v", err)
	}
}
