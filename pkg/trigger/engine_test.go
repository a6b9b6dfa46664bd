package trigger

import "testing"

func TestKeywordEngine_FiresOnIntentKeyword(t *testing.T) {
	t.Parallel()
	e := NewKeywordEngine()

	d := e.Evaluate(View{LatestAgentText: "El PRECIO depende de la operación.", VisitorTurns: 1})
	if !d.Fire {
		t.Fatal("expected keyword match to fire")
	}
	if d.Reason != ReasonIntentKeyword {
		t.Fatalf("reason = %q, want %q", d.Reason, ReasonIntentKeyword)
	}
	if d.Keyword != "precio" {
		t.Fatalf("keyword = %q, want %q", d.Keyword, "precio")
	}
}

func TestKeywordEngine_QuietWithoutKeywordBeforeThreshold(t *testing.T) {
	t.Parallel()
	e := NewKeywordEngine()

	d := e.Evaluate(View{LatestAgentText: "La cocina tiene mucha luz natural.", VisitorTurns: 1})
	if d.Fire {
		t.Fatalf("unexpected fire: %+v", d)
	}
}

func TestKeywordEngine_FallbackFiresExactlyAtThreshold(t *testing.T) {
	t.Parallel()
	e := NewKeywordEngine()

	cases := []struct {
		turns int
		fire  bool
	}{
		{turns: 1, fire: false},
		{turns: 2, fire: true},
		{turns: 3, fire: false},
		{turns: 10, fire: false},
	}
	for _, tc := range cases {
		d := e.Evaluate(View{LatestAgentText: "Tiene dos ambientes.", VisitorTurns: tc.turns})
		if d.Fire != tc.fire {
			t.Fatalf("turns=%d: fire = %v, want %v", tc.turns, d.Fire, tc.fire)
		}
		if tc.fire && d.Reason != ReasonInteractionCount {
			t.Fatalf("turns=%d: reason = %q, want %q", tc.turns, d.Reason, ReasonInteractionCount)
		}
	}
}

func TestKeywordEngine_KeywordWinsOverFallback(t *testing.T) {
	t.Parallel()
	e := NewKeywordEngine()

	d := e.Evaluate(View{LatestAgentText: "¿Querés agendar una visita?", VisitorTurns: 2})
	if !d.Fire || d.Reason != ReasonIntentKeyword {
		t.Fatalf("decision = %+v, want intent keyword fire", d)
	}
}

func TestKeywordEngineWith_DisabledFallback(t *testing.T) {
	t.Parallel()
	e := NewKeywordEngineWith([]string{"mortgage"}, 0)

	for turns := 1; turns <= 5; turns++ {
		if d := e.Evaluate(View{LatestAgentText: "Sure.", VisitorTurns: turns}); d.Fire {
			t.Fatalf("turns=%d: unexpected fire %+v", turns, d)
		}
	}
	if d := e.Evaluate(View{LatestAgentText: "About the MORTGAGE options.", VisitorTurns: 1}); !d.Fire {
		t.Fatal("expected custom keyword to fire")
	}
}

func TestKeywordEngine_IsPure(t *testing.T) {
	t.Parallel()
	e := NewKeywordEngine()
	v := View{LatestAgentText: "¿Querés que te contacte un asesor?", VisitorTurns: 4}

	first := e.Evaluate(v)
	for i := 0; i < 10; i++ {
		if got := e.Evaluate(v); got != first {
			t.Fatalf("evaluation %d = %+v, want %+v", i, got, first)
		}
	}
}
