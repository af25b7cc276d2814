package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// EntityKind classifies what role an entity plays in a source file.
type EntityKind int

const (
	KindPreamble        EntityKind = iota // Package decl, license headers, file-level comments
	KindImportBlock                       // Import statements grouped together
	KindDeclaration                       // Function, method, class, struct, interface, enum
	KindInterstitial                      // Comments/whitespace between declarations
	KindDataKey                           // JSON/YAML/TOML object key
	KindMarkdownSection                   // Markdown heading-delimited section
)

func (k EntityKind) String() string {
	switch k {
	case KindPreamble:
		return "preamble"
	case KindImportBlock:
		return "import_block"
	case KindDeclaration:
		return "declaration"
	case KindInterstitial:
		return "interstitial"
	case KindDataKey:
		return "data_key"
	case KindMarkdownSection:
		return "markdown_section"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// ParentRef identifies one ancestor of an entity in its own version's entity
// tree, used to qualify identity keys so that same-named nested entities in
// different containers (two methods named Close on different structs, two
// JSON objects both holding a "name" key) never collide.
type ParentRef struct {
	Kind EntityKind
	Name string
}

func (p ParentRef) String() string {
	return fmt.Sprintf("%s:%s", p.Kind, p.Name)
}

// Entity represents a structural unit within a source file.
type Entity struct {
	Kind      EntityKind
	Name      string // Declaration name (empty for preamble/interstitial)
	DeclKind  string // e.g. "function_definition", "type_definition" (empty for non-declarations)
	Receiver  string // Method receiver (empty for functions/types)
	Signature string // Normalized declaration signature/header text
	Ordinal   int    // Stable ordinal among entities sharing the same base identity

	// ParentPath is the ordered ancestor (kind, name) chain from the file
	// root. Empty for top-level entities. Populated during container
	// descent for class/struct/interface members and nested data keys.
	ParentPath []ParentRef

	// BodyUnordered marks containers (and their direct children) whose
	// relative order carries no meaning for merge purposes: class/struct
	// members, import blocks, and JSON/YAML/TOML object keys. Function
	// bodies and Markdown sections leave this false.
	BodyUnordered bool

	// Children holds the nested declarations of a code container header;
	// only Extract fills it, and the JSON/YAML/TOML/Markdown segmenters
	// leave it nil. It is a convenience view over entities that also appear, flattened and
	// parent-qualified, in the owning EntityList's top-level Entities
	// slice — Children never has to be consulted to reconstruct bytes.
	Children []Entity

	Body           []byte // Full source bytes of this entity
	BodyHash       string // SHA-256 of Body, content equality
	StructuralHash string // Canonicalized-AST hash, used for rename detection
	StartByte      uint32
	EndByte        uint32
	StartLine      int
	EndLine        int

	// For interstitial: identity is relative to neighbors
	PrevEntityKey string
	NextEntityKey string
}

// ComputeHash sets BodyHash from Body content.
func (e *Entity) ComputeHash() {
	h := sha256.Sum256(e.Body)
	e.BodyHash = hex.EncodeToString(h[:])
}

// ComputeStructuralHash sets StructuralHash from a canonicalized, optionally
// identifier-anonymized, form of Body. See CanonicalizeForHash.
func (e *Entity) ComputeStructuralHash(anonymize bool) {
	canon := CanonicalizeForHash(e.Body, anonymize)
	h := sha256.Sum256([]byte(canon))
	e.StructuralHash = hex.EncodeToString(h[:])
}

// parentPathKey renders the parent path as a stable string for identity keys.
func (e *Entity) parentPathKey() string {
	if len(e.ParentPath) == 0 {
		return "-"
	}
	parts := make([]string, len(e.ParentPath))
	for i, p := range e.ParentPath {
		parts[i] = p.String()
	}
	return strings.Join(parts, ">")
}

// IdentityKey returns the string used to match this entity across revisions.
func (e *Entity) IdentityKey() string {
	switch e.Kind {
	case KindPreamble:
		return fmt.Sprintf("preamble:%d", e.Ordinal)
	case KindImportBlock:
		return fmt.Sprintf("import_block:%d", e.Ordinal)
	case KindDeclaration:
		sig := normalizeIdentityText(e.Signature)
		return fmt.Sprintf("decl:%s:%s:%s:%s:%s:%d", e.parentPathKey(), e.DeclKind, e.Receiver, e.Name, sig, e.Ordinal)
	case KindDataKey:
		return fmt.Sprintf("key:%s:%s:%d", e.parentPathKey(), e.Name, e.Ordinal)
	case KindMarkdownSection:
		return fmt.Sprintf("section:%s:%s:%d", e.parentPathKey(), normalizeIdentityText(e.Name), e.Ordinal)
	case KindInterstitial:
		return fmt.Sprintf("between:%s:%s", e.PrevEntityKey, e.NextEntityKey)
	}
	return ""
}

func normalizeIdentityText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return strings.Join(strings.Fields(s), " ")
}

// EntityList is an ordered sequence of entities extracted from a source file.
type EntityList struct {
	Language string
	Path     string
	Source   []byte
	Entities []Entity
}
