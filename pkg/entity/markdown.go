package entity

import (
	"bufio"
	"bytes"
	"regexp"
)

// headingPattern matches ATX-style Markdown headings ("# Title", "## Sub").
// Setext headings (underlined with ===/---) are intentionally not
// recognized: the pack's Markdown usage (README files, design docs) is
// uniformly ATX-style, and mixing the two heading styles in one file is
// the exception rather than the rule.
var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)

// ExtractMarkdown segments a Markdown document into KindMarkdownSection
// entities, one per heading-delimited section, using stdlib bufio/regexp —
// there is no Markdown-parsing library anywhere in this module's dependency
// pack, so this is one of the few genuinely stdlib-only segmenters. Section
// bodies retain heading-level nesting via ParentPath (an H3 nests under the
// nearest preceding H2, which nests under the nearest preceding H1) and stay
// ordered: unlike class members or object keys, reordering document sections
// changes their meaning.
func ExtractMarkdown(filename string, source []byte) (*EntityList, error) {
	el := &EntityList{Language: "markdown", Path: filename, Source: source}
	if len(source) == 0 {
		return el, nil
	}

	type heading struct {
		level      int
		title      string
		startByte  uint32
		startLine  int
	}
	var headings []heading

	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	var offset uint32
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			headings = append(headings, heading{
				level:     len(m[1]),
				title:     m[2],
				startByte: offset,
				startLine: lineNo,
			})
		}
		offset += uint32(len(scanner.Bytes())) + 1 // +1 for the newline the scanner stripped
	}
	if err := scanner.Err(); err != nil {
		return nil, newParseUnusableError(filename, err.Error())
	}
	// The +1 per line overcounts the final line if the file has no trailing
	// newline; clamp the running offset to the true source length.
	if offset > uint32(len(source)) {
		offset = uint32(len(source))
	}

	if len(headings) == 0 {
		el.Entities = append(el.Entities, makeEntity(KindInterstitial, source, 0, uint32(len(source)), 1, lineNo))
		return el, nil
	}

	if headings[0].startByte > 0 {
		e := makeEntity(KindPreamble, source, 0, headings[0].startByte, 1, headings[0].startLine-1)
		el.Entities = append(el.Entities, e)
	}

	var stack []heading // ancestor stack by level
	for i, h := range headings {
		end := uint32(len(source))
		if i+1 < len(headings) {
			end = headings[i+1].startByte
		}

		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		var parentPath []ParentRef
		for _, anc := range stack {
			parentPath = append(parentPath, ParentRef{Kind: KindMarkdownSection, Name: anc.title})
		}

		e := makeEntity(KindMarkdownSection, source, h.startByte, end, h.startLine, h.startLine)
		e.Name = h.title
		e.ParentPath = parentPath
		e.BodyUnordered = false
		e.ComputeStructuralHash(true)
		el.Entities = append(el.Entities, e)

		stack = append(stack, h)
	}

	assignIdentityOrdinals(el)
	setInterstitialNeighborKeys(el)
	return el, nil
}
