package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/blockpress/blockpress/internal/block"
)

func candidateFor(bundle Bundle) Candidate {
	return Candidate{
		Name:     bundle.Name,
		Version:  bundle.Version,
		IsActive: true,
		Load: func(context.Context) (Bundle, error) {
			return bundle, nil
		},
	}
}

func TestLoaderRegistersBuiltinsAndExternal(t *testing.T) {
	r := newTestRegistry()
	l := NewLoader(r,
		WithBuiltins(Bundle{Name: "basic", Version: "1.0.0", Blocks: []block.Definition{
			{ID: "core/heading"},
		}}),
		WithSources(StaticSource{SourceName: "test", Candidates: []Candidate{
			candidateFor(Bundle{Name: "gallery", Version: "0.2.0", Blocks: []block.Definition{
				{ID: "gallery/grid"},
			}}),
		}}),
	)

	summary := l.LoadAll(context.Background())
	if summary.Registered != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 2 registered, 0 failed", summary)
	}
	if !r.Catalog().Has("core/heading") || !r.Catalog().Has("gallery/grid") {
		t.Error("expected both blocks registered")
	}
}

func TestLoaderIsolatesFailures(t *testing.T) {
	r := newTestRegistry()
	l := NewLoader(r, WithSources(StaticSource{SourceName: "test", Candidates: []Candidate{
		{
			Name:     "broken",
			IsActive: true,
			Load: func(context.Context) (Bundle, error) {
				return Bundle{}, errors.New("syntax error")
			},
		},
		{
			Name:     "panicky",
			IsActive: true,
			Load: func(context.Context) (Bundle, error) {
				panic("oh no")
			},
		},
		candidateFor(Bundle{Name: "fine", Blocks: []block.Definition{{ID: "fine/block"}}}),
	}}))

	summary := l.LoadAll(context.Background())
	if summary.Registered != 1 {
		t.Errorf("Registered = %d, want 1", summary.Registered)
	}
	if summary.Failed != 2 {
		t.Errorf("Failed = %d, want 2", summary.Failed)
	}
	if !r.Catalog().Has("fine/block") {
		t.Error("healthy plugin should register despite neighbors failing")
	}

	for _, res := range summary.Results {
		switch res.Name {
		case "broken", "panicky":
			if res.State != StateFailed || res.Err == nil {
				t.Errorf("%s = %v err=%v, want failed with reason", res.Name, res.State, res.Err)
			}
		case "fine":
			if res.State != StateRegistered {
				t.Errorf("fine state = %v, want registered", res.State)
			}
		}
	}
}

func TestLoaderSkipsInactive(t *testing.T) {
	r := newTestRegistry()
	l := NewLoader(r, WithSources(StaticSource{SourceName: "test", Candidates: []Candidate{
		{
			Name: "disabled",
			Load: func(context.Context) (Bundle, error) {
				t.Error("inactive candidate must not be loaded")
				return Bundle{}, nil
			},
		},
		candidateFor(Bundle{Name: "enabled"}),
	}}))

	summary := l.LoadAll(context.Background())
	if summary.Registered != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 1 registered, 0 failed", summary)
	}
	if len(summary.Results) != 1 {
		t.Errorf("results = %d, want inactive candidate absent", len(summary.Results))
	}
}

func TestLoaderFixedRegistrationOrder(t *testing.T) {
	// A slow earlier candidate must still register before a fast later
	// one: loads are concurrent, registration order is fixed.
	r := newTestRegistry()

	slowReady := make(chan struct{})
	l := NewLoader(r, WithSources(StaticSource{SourceName: "test", Candidates: []Candidate{
		{
			Name:     "slow",
			IsActive: true,
			Load: func(context.Context) (Bundle, error) {
				<-slowReady
				return Bundle{Name: "slow", Blocks: []block.Definition{
					{ID: "shared/block", DisplayName: "From Slow"},
				}}, nil
			},
		},
		{
			Name:     "fast",
			IsActive: true,
			Load: func(context.Context) (Bundle, error) {
				// Let the slow load finish only after this one returned.
				defer close(slowReady)
				return Bundle{Name: "fast", Blocks: []block.Definition{
					{ID: "shared/block", DisplayName: "From Fast"},
				}}, nil
			},
		},
	}}))

	l.LoadAll(context.Background())

	// "fast" is later in candidate order, so it registers last and wins.
	def, ok := r.Catalog().Get("shared/block")
	if !ok {
		t.Fatal("shared/block not registered")
	}
	if def.DisplayName != "From Fast" {
		t.Errorf("DisplayName = %q, want From Fast", def.DisplayName)
	}
}

func TestLoaderDuplicateNameAcrossSources(t *testing.T) {
	// Built-in "basic" and an external "basic": plugin identity is the
	// name, so the external bundle replaces the built-in registration.
	// The summary reports one registration success, not two, and no
	// failures.
	r := newTestRegistry()
	l := NewLoader(r,
		WithBuiltins(Bundle{Name: "basic", Version: "1.0.0", Blocks: []block.Definition{
			{ID: "core/heading", DisplayName: "Built-in Heading"},
		}}),
		WithSources(StaticSource{SourceName: "test", Candidates: []Candidate{
			candidateFor(Bundle{Name: "basic", Version: "2.0.0", Blocks: []block.Definition{
				{ID: "core/heading", DisplayName: "External Heading"},
			}}),
		}}),
	)

	summary := l.LoadAll(context.Background())
	if summary.Registered != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 1 registered, 0 failed", summary)
	}

	// Both candidates still appear in the per-candidate results.
	if len(summary.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(summary.Results))
	}
	for _, res := range summary.Results {
		if res.State != StateRegistered {
			t.Errorf("%s v%s state = %v, want registered", res.Name, res.Version, res.State)
		}
	}

	if got := r.Registered(); len(got) != 1 || got[0] != "basic" {
		t.Errorf("Registered = %v, want [basic]", got)
	}
	def, _ := r.Catalog().Get("core/heading")
	if def.DisplayName != "External Heading" {
		t.Errorf("DisplayName = %q, want External Heading (last registration wins)", def.DisplayName)
	}
	if v, _ := r.Version("basic"); v != "2.0.0" {
		t.Errorf("Version = %q, want 2.0.0", v)
	}
}

func TestLoaderSourceDiscoveryFailure(t *testing.T) {
	r := newTestRegistry()
	l := NewLoader(r, WithSources(
		failingSource{},
		StaticSource{SourceName: "ok", Candidates: []Candidate{
			candidateFor(Bundle{Name: "fine"}),
		}},
	))

	summary := l.LoadAll(context.Background())
	if summary.Failed != 1 || summary.Registered != 1 {
		t.Errorf("summary = %+v, want 1 failed, 1 registered", summary)
	}
}

type failingSource struct{}

func (failingSource) Name() string { return "failing" }
func (failingSource) Discover(context.Context) ([]Candidate, error) {
	return nil, errors.New("directory unreadable")
}

func TestLoaderNilLoad(t *testing.T) {
	r := newTestRegistry()
	l := NewLoader(r, WithSources(StaticSource{Candidates: []Candidate{
		{Name: "empty", IsActive: true},
	}}))

	summary := l.LoadAll(context.Background())
	if summary.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", summary.Failed)
	}
	if !errors.Is(summary.Results[0].Err, ErrNilLoad) {
		t.Errorf("err = %v, want ErrNilLoad", summary.Results[0].Err)
	}
}
