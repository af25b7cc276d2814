package entity

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ExtractJSON segments a JSON document into KindDataKey entities, one per
// top-level object key, using encoding/json's token stream to recover exact
// byte offsets for each value (encoding/json does not expose key order or
// spans through Unmarshal, so this walks json.Decoder tokens directly).
// Nested objects are flattened with ParentPath, mirroring how
// collectNestedDeclarationNodes flattens container members in Extract.
// Non-object top-level documents (arrays, scalars) are returned as a single
// KindInterstitial entity, since there is no key to key a merge on.
func ExtractJSON(filename string, source []byte) (*EntityList, error) {
	el := &EntityList{Language: "json", Path: filename, Source: source}
	if len(source) == 0 {
		return el, nil
	}

	var probe interface{}
	if err := json.Unmarshal(source, &probe); err != nil {
		return nil, newParseUnusableError(filename, err.Error())
	}
	_, ok := probe.(map[string]interface{})
	if !ok {
		el.Entities = append(el.Entities, makeEntity(KindInterstitial, source, 0, uint32(len(source)), 0, 0))
		return el, nil
	}

	spans, err := jsonKeySpans(source)
	if err != nil {
		return nil, newParseUnusableError(filename, err.Error())
	}

	var cursor uint32
	for _, sp := range spans {
		if sp.start > cursor {
			el.Entities = append(el.Entities, makeEntity(KindInterstitial, source, cursor, sp.start, 0, 0))
		}
		e := makeEntity(KindDataKey, source, sp.start, sp.end, 0, 0)
		e.Name = sp.key
		e.ParentPath = sp.parentPath
		e.BodyUnordered = true
		e.ComputeStructuralHash(true)
		el.Entities = append(el.Entities, e)
		cursor = sp.end
	}
	if cursor < uint32(len(source)) {
		el.Entities = append(el.Entities, makeEntity(KindInterstitial, source, cursor, uint32(len(source)), 0, 0))
	}

	assignIdentityOrdinals(el)
	setInterstitialNeighborKeys(el)
	return el, nil
}

type keySpan struct {
	key        string
	parentPath []ParentRef
	start, end uint32
}

// jsonKeySpans walks a json.Decoder token stream to recover the byte span of
// each top-level (and nested-object) key's entry. json.Decoder reports
// InputOffset after each token, which this uses to bracket each entry's
// start/end without re-implementing a JSON parser. A key whose value is an
// object gets a header span running up to and including its '{'; its own
// keys then get spans of their own.
func jsonKeySpans(source []byte) ([]keySpan, error) {
	dec := json.NewDecoder(bytes.NewReader(source))
	var spans []keySpan
	var path []ParentRef

	// walkValue reads one key/value pair whose key token has already been
	// consumed. entryStart is the offset captured before that key token was
	// read, so the recorded span covers the full `"key": value` text
	// (including the key itself), not just the value.
	var walkValue func(key string, entryStart int64) error
	walkValue = func(key string, entryStart int64) error {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch d := tok.(type) {
		case json.Delim:
			if d == '{' {
				recordSpan(&spans, source, key, append([]ParentRef{}, path...), entryStart, dec.InputOffset())
				path = append(path, ParentRef{Kind: KindDataKey, Name: key})
				for dec.More() {
					childStart := dec.InputOffset()
					kTok, err := dec.Token()
					if err != nil {
						return err
					}
					childKey := kTok.(string)
					if err := walkValue(childKey, childStart); err != nil {
						return err
					}
				}
				if _, err := dec.Token(); err != nil { // consume '}'
					return err
				}
				path = path[:len(path)-1]
				return nil
			}
			if d == '[' {
				for dec.More() {
					if _, err := dec.Token(); err != nil {
						return err
					}
				}
				if _, err := dec.Token(); err != nil { // consume ']'
					return err
				}
			}
		}
		endOffset := dec.InputOffset()
		recordSpan(&spans, source, key, append([]ParentRef{}, path...), entryStart, endOffset)
		return nil
	}

	if _, err := dec.Token(); err != nil { // consume outer '{'
		return nil, err
	}
	for dec.More() {
		entryStart := dec.InputOffset()
		kTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := kTok.(string)
		if err := walkValue(key, entryStart); err != nil {
			return nil, err
		}
	}
	return spans, nil
}

// recordSpan appends the [start,end) span reported by the decoder, clamped
// to the source bounds (end is never allowed below start).
func recordSpan(spans *[]keySpan, source []byte, key string, path []ParentRef, start, end int64) {
	if start < 0 {
		start = 0
	}
	if end > int64(len(source)) {
		end = int64(len(source))
	}
	if end < start {
		end = start
	}
	*spans = append(*spans, keySpan{key: key, parentPath: path, start: uint32(start), end: uint32(end)})
}

// ExtractYAML segments a YAML document into KindDataKey entities keyed by
// their mapping key, using gopkg.in/yaml.v3's Node tree, which (unlike
// encoding/json) exposes Line/Column directly so spans don't need manual
// token bracketing.
func ExtractYAML(filename string, source []byte) (*EntityList, error) {
	el := &EntityList{Language: "yaml", Path: filename, Source: source}
	if len(source) == 0 {
		return el, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(source, &doc); err != nil {
		return nil, newParseUnusableError(filename, err.Error())
	}
	if len(doc.Content) == 0 {
		el.Entities = append(el.Entities, makeEntity(KindInterstitial, source, 0, uint32(len(source)), 0, 0))
		return el, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		el.Entities = append(el.Entities, makeEntity(KindInterstitial, source, 0, uint32(len(source)), 0, 0))
		return el, nil
	}

	lineOffsets := computeLineOffsets(source)
	var cursor uint32

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode := root.Content[i]
		valNode := root.Content[i+1]
		start := byteOffsetForLineCol(lineOffsets, keyNode.Line, keyNode.Column)
		end := yamlValueEndOffset(source, lineOffsets, valNode)

		if start > cursor {
			el.Entities = append(el.Entities, makeEntity(KindInterstitial, source, cursor, start, 0, 0))
		}
		e := makeEntity(KindDataKey, source, start, end, keyNode.Line, valNode.Line)
		e.Name = keyNode.Value
		e.BodyUnordered = true
		e.ComputeStructuralHash(true)
		el.Entities = append(el.Entities, e)
		cursor = end
	}
	if cursor < uint32(len(source)) {
		el.Entities = append(el.Entities, makeEntity(KindInterstitial, source, cursor, uint32(len(source)), 0, 0))
	}

	assignIdentityOrdinals(el)
	setInterstitialNeighborKeys(el)
	return el, nil
}

func computeLineOffsets(source []byte) []uint32 {
	offsets := []uint32{0}
	for i, b := range source {
		if b == '\n' {
			offsets = append(offsets, uint32(i+1))
		}
	}
	return offsets
}

func byteOffsetForLineCol(lineOffsets []uint32, line, col int) uint32 {
	idx := line - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(lineOffsets) {
		idx = len(lineOffsets) - 1
	}
	off := lineOffsets[idx] + uint32(col-1)
	return off
}

// yamlValueEndOffset approximates a mapping value's end as the start of the
// line after the last line on which the value or any of its descendant
// nodes starts. This covers block mappings and sequences and includes a
// comment on that last line. A scalar whose text runs past the line it
// starts on (a `|` or `>` block scalar, a multi-line plain or quoted
// scalar) is cut at that line; its remaining lines fall into the following
// interstitial.
func yamlValueEndOffset(source []byte, lineOffsets []uint32, n *yaml.Node) uint32 {
	lastLine := n.Line
	if len(n.Content) > 0 {
		for _, c := range n.Content {
			if e := yamlNodeLastLine(c); e > lastLine {
				lastLine = e
			}
		}
	}
	idx := lastLine // lineOffsets is 0-indexed by line-1, so lastLine (1-indexed) maps to the start of the next line
	if idx >= len(lineOffsets) {
		return uint32(len(source))
	}
	return lineOffsets[idx]
}

func yamlNodeLastLine(n *yaml.Node) int {
	last := n.Line
	for _, c := range n.Content {
		if e := yamlNodeLastLine(c); e > last {
			last = e
		}
	}
	return last
}

// ExtractTOML segments a TOML document into KindDataKey entities, one per
// top-level and nested-table key, using BurntSushi/toml's MetaData.Keys to
// recover the declared key order and toml.Decoder's position tracking isn't
// available, so byte spans fall back to a line-based scan for each key's
// `key = value` or `[table]` header line.
func ExtractTOML(filename string, source []byte) (*EntityList, error) {
	el := &EntityList{Language: "toml", Path: filename, Source: source}
	if len(source) == 0 {
		return el, nil
	}

	var probe map[string]interface{}
	meta, err := toml.Decode(string(source), &probe)
	if err != nil {
		return nil, newParseUnusableError(filename, err.Error())
	}

	lineOffsets := computeLineOffsets(source)
	lineStarts := tomlKeyLineStarts(source)

	type tomlEntry struct {
		name       string
		parentPath []ParentRef
		line       int
	}
	var entries []tomlEntry
	for _, k := range meta.Keys() {
		parts := []string(k)
		if len(parts) == 0 {
			continue
		}
		name := parts[len(parts)-1]
		var parent []ParentRef
		for _, p := range parts[:len(parts)-1] {
			parent = append(parent, ParentRef{Kind: KindDataKey, Name: p})
		}
		line, ok := lineStarts[k.String()]
		if !ok {
			continue
		}
		entries = append(entries, tomlEntry{name: name, parentPath: parent, line: line})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].line < entries[j].line })

	var cursor uint32
	for i, ent := range entries {
		start := lineOffsets[ent.line-1]
		var end uint32
		if i+1 < len(entries) {
			end = lineOffsets[entries[i+1].line-1]
		} else {
			end = uint32(len(source))
		}
		if start < cursor {
			continue // nested key whose line was already claimed by its table header
		}
		if start > cursor {
			el.Entities = append(el.Entities, makeEntity(KindInterstitial, source, cursor, start, 0, 0))
		}
		e := makeEntity(KindDataKey, source, start, end, ent.line, ent.line)
		e.Name = ent.name
		e.ParentPath = ent.parentPath
		e.BodyUnordered = true
		e.ComputeStructuralHash(true)
		el.Entities = append(el.Entities, e)
		cursor = end
	}
	if cursor < uint32(len(source)) {
		el.Entities = append(el.Entities, makeEntity(KindInterstitial, source, cursor, uint32(len(source)), 0, 0))
	}

	assignIdentityOrdinals(el)
	setInterstitialNeighborKeys(el)
	return el, nil
}

// tomlKeyLineStarts scans raw TOML text for `[table]`/`[[array-table]]`
// headers and `key = value` lines, mapping each dotted key path to its
// 1-indexed line number.
func tomlKeyLineStarts(source []byte) map[string]int {
	lines := bytes.Split(source, []byte("\n"))
	out := make(map[string]int)
	var currentTable string
	for i, raw := range lines {
		line := bytes.TrimSpace(raw)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if line[0] == '[' {
			table := bytes.Trim(line, "[]")
			table = bytes.TrimPrefix(table, []byte("["))
			table = bytes.TrimSuffix(table, []byte("]"))
			currentTable = string(bytes.TrimSpace(table))
			out[currentTable] = i + 1
			continue
		}
		eq := bytes.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := string(bytes.TrimSpace(line[:eq]))
		key = trimTOMLQuotes(key)
		full := key
		if currentTable != "" {
			full = currentTable + "." + key
		}
		if _, exists := out[full]; !exists {
			out[full] = i + 1
		}
	}
	return out
}

func trimTOMLQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
