package entity

import "testing"

func TestCanonicalizeForHashCollapsesWhitespace(t *testing.T) {
	a := CanonicalizeForHash([]byte("func  Foo( )  {\n\treturn 1\n}"), false)
	b := CanonicalizeForHash([]byte("func Foo( ) { return 1 }"), false)
	if a != b {
		t.Fatalf("expected whitespace-insensitive equality, got %q vs %q", a, b)
	}
}

func TestCanonicalizeForHashAnonymizeMatchesRenamedDeclarations(t *testing.T) {
	a := CanonicalizeForHash([]byte("func Foo(a, b int) int { return a + b }"), true)
	b := CanonicalizeForHash([]byte("func Sum(x, y int) int { return x + y }"), true)
	if a != b {
		t.Fatalf("expected renamed-but-identical-shape declarations to canonicalize equal, got %q vs %q", a, b)
	}
}

func TestCanonicalizeForHashAnonymizeDistinguishesBodyChange(t *testing.T) {
	a := CanonicalizeForHash([]byte("func Add(a, b int) int { return a + b }"), true)
	b := CanonicalizeForHash([]byte("func Add(a, b int) int { return a * b }"), true)
	if a == b {
		t.Fatal("expected a body-level operator change to produce different canonical forms")
	}
}

func TestCanonicalizeForHashKeepsKeywordsLiteral(t *testing.T) {
	out := CanonicalizeForHash([]byte("func Foo() { if true { return } }"), true)
	if !contains(out, "func") || !contains(out, "if") || !contains(out, "return") {
		t.Fatalf("expected keywords to survive anonymization, got %q", out)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func TestEntityComputeStructuralHash(t *testing.T) {
	e1 := Entity{Kind: KindDeclaration, Name: "Foo", Body: []byte("func Foo(a int) int { return a }")}
	e2 := Entity{Kind: KindDeclaration, Name: "Bar", Body: []byte("func Bar(x int) int { return x }")}
	e1.ComputeStructuralHash(true)
	e2.ComputeStructuralHash(true)
	if e1.StructuralHash != e2.StructuralHash {
		t.Fatalf("expected equal structural hashes for renamed-identical declarations, got %s vs %s", e1.StructuralHash, e2.StructuralHash)
	}
	if e1.StructuralHash == "" {
		t.Fatal("expected non-empty structural hash")
	}
}
