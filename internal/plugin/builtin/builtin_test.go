package builtin

import (
	"context"
	"testing"

	"github.com/blockpress/blockpress/internal/content"
)

func TestBasicBundleBlocks(t *testing.T) {
	bundles := Bundles()
	if len(bundles) != 1 {
		t.Fatalf("bundles = %d, want 1", len(bundles))
	}
	basic := bundles[0]
	if basic.Name != "basic" {
		t.Errorf("name = %q, want basic", basic.Name)
	}
	if err := basic.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	want := []string{"core/heading", "core/paragraph", "core/image", "core/button", "core/section"}
	if len(basic.Blocks) != len(want) {
		t.Fatalf("blocks = %d, want %d", len(basic.Blocks), len(want))
	}
	for i, id := range want {
		if basic.Blocks[i].ID != id {
			t.Errorf("blocks[%d].ID = %q, want %q", i, basic.Blocks[i].ID, id)
		}
	}
}

func TestNormalizeHeadings(t *testing.T) {
	tests := []struct {
		name  string
		level any
		want  any
	}{
		{"too low", 0, 1},
		{"too high", 99, 6},
		{"in range", 3, 3},
		{"negative", -2, 1},
		{"float from json", 8.0, 6},
		{"not a number", "two", "two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := content.Tree{Elements: []content.Element{
				{ID: "h1", Type: "core/heading", Properties: content.Properties{"level": tt.level}},
			}}

			out, err := normalizeHeadings(context.Background(), tree)
			if err != nil {
				t.Fatalf("normalizeHeadings: %v", err)
			}
			got := out.(content.Tree).Elements[0].Properties["level"]
			if got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeHeadingsNested(t *testing.T) {
	tree := content.Tree{Elements: []content.Element{
		{ID: "s", Type: "core/section", Children: []content.Element{
			{ID: "h", Type: "core/heading", Properties: content.Properties{"level": 9}},
			{ID: "p", Type: "core/paragraph", Properties: content.Properties{"text": "hi"}},
		}},
	}}

	out, err := normalizeHeadings(context.Background(), tree)
	if err != nil {
		t.Fatalf("normalizeHeadings: %v", err)
	}
	result := out.(content.Tree)
	if got := result.Elements[0].Children[0].Properties["level"]; got != 6 {
		t.Errorf("nested level = %v, want 6", got)
	}
	if tree.Elements[0].Children[0].Properties["level"] != 9 {
		t.Error("input tree mutated")
	}
}

func TestNormalizeHeadingsIdempotent(t *testing.T) {
	tree := content.Tree{Elements: []content.Element{
		{ID: "h", Type: "core/heading", Properties: content.Properties{"level": 42}},
	}}

	once, err := normalizeHeadings(context.Background(), tree)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	twice, err := normalizeHeadings(context.Background(), once.(content.Tree))
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if got := twice.(content.Tree).Elements[0].Properties["level"]; got != 6 {
		t.Errorf("level = %v, want 6 after both passes", got)
	}
}

func TestNormalizeHeadingsMapForm(t *testing.T) {
	tree := content.Tree{Elements: []content.Element{
		{ID: "h", Type: "core/heading", Properties: content.Properties{"level": 12}},
	}}
	shaped, err := tree.ToMap()
	if err != nil {
		t.Fatal(err)
	}

	out, err := normalizeHeadings(context.Background(), shaped)
	if err != nil {
		t.Fatalf("normalizeHeadings: %v", err)
	}
	result, ok := out.(content.Tree)
	if !ok {
		t.Fatalf("out = %T, want content.Tree", out)
	}
	if got := result.Elements[0].Properties["level"]; got != 6 {
		t.Errorf("level = %v, want 6", got)
	}
}
