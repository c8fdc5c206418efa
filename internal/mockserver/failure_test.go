package mockserver

import (
	"slices"
	"testing"

	"github.com/reoring/postq/internal/config"
)

func decisions(f *FailureInjector, method string, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = f.ShouldFail(method)
	}
	return out
}

func TestFailureInjector_EveryNth(t *testing.T) {
	f, err := NewFailureInjector(config.Failure{Mode: config.FailEveryNth, Every: 3})
	if err != nil {
		t.Fatal(err)
	}
	got := decisions(f, "PUT", 6)
	want := []bool{false, false, true, false, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("decision %d = %v, want %v", i, got[i], want[i])
		}
	}
	if f.ShouldFail("GET") {
		t.Fatalf("GET is not a configured method")
	}
}

func TestFailureInjector_SeededIsDeterministic(t *testing.T) {
	cfg := config.Failure{Mode: config.FailSeeded, Rate: 0.5, Seed: 42, Methods: []string{"put"}}
	a, err := NewFailureInjector(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewFailureInjector(cfg)
	da, db := decisions(a, "PUT", 64), decisions(b, "PUT", 64)
	fails := 0
	for i := range da {
		if da[i] != db[i] {
			t.Fatalf("same seed diverged at %d", i)
		}
		if da[i] {
			fails++
		}
	}
	if fails == 0 || fails == 64 {
		t.Fatalf("rate 0.5 produced %d failures out of 64", fails)
	}
}

func TestFailureInjector_SeedSelectsSequence(t *testing.T) {
	one, err := NewFailureInjector(config.Failure{Mode: config.FailSeeded, Rate: 0.5, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	two, _ := NewFailureInjector(config.Failure{Mode: config.FailSeeded, Rate: 0.5, Seed: 2})
	if slices.Equal(decisions(one, "PUT", 64), decisions(two, "PUT", 64)) {
		t.Fatalf("different seeds produced the same 64 decisions")
	}
}

func TestFailureInjector_Bounds(t *testing.T) {
	if _, err := NewFailureInjector(config.Failure{Mode: config.FailSeeded, Rate: 2}); err == nil {
		t.Fatalf("expected rate error")
	}
	if _, err := NewFailureInjector(config.Failure{Mode: "sometimes"}); err == nil {
		t.Fatalf("expected mode error")
	}
	if NeverFail().ShouldFail("PUT") {
		t.Fatalf("never should not fail")
	}
	if !AlwaysFail().ShouldFail("PUT") {
		t.Fatalf("always defaults to PUT")
	}
}
