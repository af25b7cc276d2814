package entity

import (
	"bytes"
	"testing"
)

func TestExtractMarkdownSections(t *testing.T) {
	src := []byte("# Title\n\nIntro text.\n\n## Usage\n\nRun it.\n\n## Installation\n\nClone it.\n")

	el, err := ExtractMarkdown("README.md", src)
	if err != nil {
		t.Fatalf("ExtractMarkdown failed: %v", err)
	}

	var sections []Entity
	for _, e := range el.Entities {
		if e.Kind == KindMarkdownSection {
			sections = append(sections, e)
		}
	}
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	if sections[0].Name != "Title" || sections[1].Name != "Usage" || sections[2].Name != "Installation" {
		t.Fatalf("unexpected section names: %v", []string{sections[0].Name, sections[1].Name, sections[2].Name})
	}
	if len(sections[1].ParentPath) != 1 || sections[1].ParentPath[0].Name != "Title" {
		t.Fatalf("expected Usage to nest under Title, got %+v", sections[1].ParentPath)
	}
	if sections[0].BodyUnordered {
		t.Fatal("markdown sections must stay ordered")
	}

	if got := Reconstruct(el); !bytes.Equal(got, src) {
		t.Fatalf("reconstruction mismatch:\nwant %q\ngot  %q", src, got)
	}
}

func TestExtractMarkdownNoHeadings(t *testing.T) {
	src := []byte("just a paragraph, no headings here.\n")
	el, err := ExtractMarkdown("notes.md", src)
	if err != nil {
		t.Fatalf("ExtractMarkdown failed: %v", err)
	}
	if len(el.Entities) != 1 || el.Entities[0].Kind != KindInterstitial {
		t.Fatalf("expected a single interstitial entity, got %+v", el.Entities)
	}
}

func TestExtractMarkdownEmpty(t *testing.T) {
	el, err := ExtractMarkdown("empty.md", nil)
	if err != nil {
		t.Fatalf("ExtractMarkdown failed: %v", err)
	}
	if len(el.Entities) != 0 {
		t.Fatalf("expected no entities for empty input, got %d", len(el.Entities))
	}
}
