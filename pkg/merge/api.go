package merge

import (
	"bytes"
	"fmt"

	"github.com/semergehq/semerge/pkg/entity"
)

// Result is the public outcome of a Merge call.
type Result struct {
	Text      []byte
	Conflicts []ConflictRecord
	Stats     Stats
}

// extensionForLanguage maps a merge-driver language tag to a filename
// extension grammars.DetectLanguage recognizes. Merge takes an explicit
// language tag (the fourth argument of the merge-driver command line,
// written literally in the driver config, e.g. `semergedrv %O %A %B go`)
// rather than a path, since merge drivers are free to invoke this on a
// temp file whose name carries no extension at all.
func extensionForLanguage(tag string) string {
	switch tag {
	case "go":
		return ".go"
	case "python", "py":
		return ".py"
	case "rust", "rs":
		return ".rs"
	case "typescript", "ts":
		return ".ts"
	case "javascript", "js":
		return ".js"
	case "c":
		return ".c"
	case "cpp", "c++":
		return ".cpp"
	case "java":
		return ".java"
	default:
		return ""
	}
}

// Merge performs an entity-level three-way merge of base, ours, and theirs,
// dispatching to the tree-sitter declaration segmenter for programming
// languages and to the dedicated JSON/YAML/TOML/Markdown segmenters for
// data and document formats. languageTag selects the segmenter: "go",
// "python", "rust", "typescript", "javascript", "c", "cpp", "java", "json",
// "yaml", "toml", or "markdown". An unrecognized tag, a parse failure on
// any side, or a side exceeding opts.MaxBytes falls back to a line-level
// diff3 merge — these are not errors, since falling back is this module's
// defined behavior for unsupported input, not a failure of Merge itself.
// Merge returns a non-nil error only for entity.ErrInvariantViolation /
// ErrInvariantViolation: a self-check failure in this module's own output.
func Merge(base, ours, theirs []byte, languageTag string, opts Options) (Result, error) {
	opts = opts.withDefaults()

	if isBinaryContent(base) || isBinaryContent(ours) || isBinaryContent(theirs) {
		mr := mergeBinaryFallback(base, ours, theirs)
		return Result{Text: mr.Merged, Stats: statsFromMergeStats(mr.Stats)}, nil
	}
	if len(base) > opts.MaxBytes || len(ours) > opts.MaxBytes || len(theirs) > opts.MaxBytes {
		mr := mergeTextFallback(base, ours, theirs)
		return Result{Text: mr.Merged, Stats: statsFromMergeStats(mr.Stats)}, nil
	}

	baseEL, oursEL, theirsEL, ok := extractAll(languageTag, base, ours, theirs)
	if !ok || !hasSegmentedEntities(baseEL) || !hasSegmentedEntities(oursEL) || !hasSegmentedEntities(theirsEL) {
		mr := mergeTextFallback(base, ours, theirs)
		return Result{Text: mr.Merged, Stats: statsFromMergeStats(mr.Stats)}, nil
	}

	// Each side's own segmentation must round-trip and carry distinct
	// identities before it's trusted as matcher input — a segmenter bug
	// here would otherwise surface as a baffling downstream conflict or
	// silent data loss instead of a clear invariant failure.
	for _, el := range []*entity.EntityList{baseEL, oursEL, theirsEL} {
		if err := entity.CheckReconstruction(el); err != nil {
			return Result{}, &InvariantViolationError{Detail: "segmentation did not round-trip", Err: err}
		}
		if err := entity.CheckDistinctIdentities(el); err != nil {
			return Result{}, &InvariantViolationError{Detail: "duplicate identity key", Err: err}
		}
	}

	matches := MatchEntities(baseEL, oursEL, theirsEL)
	if *opts.RenameDetection {
		matches = DetectRenames(matches)
	}

	language := languageTag
	resolved, records, stats := resolveMatches(matches, language, opts)

	merged := ReconstructMarked(resolved, opts.MarkerSize)

	return Result{Text: merged, Conflicts: records, Stats: stats}, nil
}

// extractAll runs the languageTag-appropriate segmenter over all three
// sides, returning ok=false if any side is unsupported or unusable so the
// caller can fall back uniformly.
func extractAll(languageTag string, base, ours, theirs []byte) (*entity.EntityList, *entity.EntityList, *entity.EntityList, bool) {
	extract := func(src []byte) (*entity.EntityList, error) {
		switch languageTag {
		case "json":
			return entity.ExtractJSON("merge-input.json", src)
		case "yaml", "yml":
			return entity.ExtractYAML("merge-input.yaml", src)
		case "toml":
			return entity.ExtractTOML("merge-input.toml", src)
		case "markdown", "md":
			return entity.ExtractMarkdown("merge-input.md", src)
		default:
			ext := extensionForLanguage(languageTag)
			if ext == "" {
				return nil, fmt.Errorf("%w: %s", entity.ErrUnsupportedLanguage, languageTag)
			}
			return entity.Extract("merge-input"+ext, src)
		}
	}

	baseEL, err1 := extract(base)
	oursEL, err2 := extract(ours)
	theirsEL, err3 := extract(theirs)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, nil, nil, false
	}
	return baseEL, oursEL, theirsEL, true
}

// hasSegmentedEntities reports whether an extraction produced at least one
// entity a merge can actually key on. hasDeclaration (used by MergeFiles)
// only recognizes KindDeclaration, which is right for programming languages
// but would force every JSON/YAML/TOML/Markdown document into the text
// fallback, since those segmenters never produce KindDeclaration entities.
func hasSegmentedEntities(el *entity.EntityList) bool {
	for _, e := range el.Entities {
		switch e.Kind {
		case entity.KindDeclaration, entity.KindDataKey, entity.KindMarkdownSection:
			return true
		}
	}
	return false
}

// resolveMatches mirrors MergeFiles' per-disposition resolution but in
// terms of Options (marker size deferred to ReconstructMarked, import sort
// mode, rename awareness) and produces the spec-shaped Stats/ConflictRecord
// outputs instead of MergeStats.
func resolveMatches(matches []MatchedEntity, language string, opts Options) ([]ResolvedEntity, []ConflictRecord, Stats) {
	var resolved []ResolvedEntity
	var records []ConflictRecord
	var stats Stats

	for _, m := range matches {
		switch m.Disposition {
		case Unchanged:
			if m.Base != nil {
				resolved = append(resolved, ResolvedEntity{Entity: *m.Base})
			}
			stats.EntitiesUnchanged++

		case OursOnly:
			resolved = append(resolved, ResolvedEntity{Entity: *m.Ours})
			stats.ModifiedEachSide++

		case TheirsOnly:
			resolved = append(resolved, ResolvedEntity{Entity: *m.Theirs})
			stats.ModifiedEachSide++

		case BothSame:
			resolved = append(resolved, ResolvedEntity{Entity: *m.Ours})
			stats.MergedRecursively++

		case AddedOurs:
			resolved = append(resolved, ResolvedEntity{Entity: *m.Ours})
			stats.AddedOurs++

		case AddedTheirs:
			resolved = append(resolved, ResolvedEntity{Entity: *m.Theirs})
			stats.AddedTheirs++

		case DeletedOurs, DeletedTheirs:
			if m.Base != nil && m.Base.Kind == entity.KindInterstitial {
				resolved = append(resolved, ResolvedEntity{Entity: *m.Base})
				stats.EntitiesUnchanged++
			}

		case Conflict:
			re := resolveConflictWithImportSort(m, language, opts.ImportSort)
			resolved = append(resolved, re)
			if re.Conflict {
				stats.Conflicts++
				records = append(records, ConflictRecord{
					EntityPath: entityPath(m.Ours),
					Kind:       dispositionKind(m),
					Reason:     conflictReasonFor(m),
				})
			} else {
				stats.MergedRecursively++
			}

		case DeleteVsModify:
			re := resolveDeleteVsModify(m)
			resolved = append(resolved, re)
			stats.Conflicts++
			records = append(records, ConflictRecord{
				EntityPath: entityPath(m.Base),
				Kind:       dispositionKind(m),
				Reason:     ReasonModifyDelete,
			})
		}
	}

	stampLineSpans(resolved, records)
	return resolved, records, stats
}

func dispositionKind(m MatchedEntity) entity.EntityKind {
	switch {
	case m.Ours != nil:
		return m.Ours.Kind
	case m.Theirs != nil:
		return m.Theirs.Kind
	case m.Base != nil:
		return m.Base.Kind
	}
	return entity.KindInterstitial
}

// stampLineSpans walks resolved entities in output order, tracking how many
// lines each contributes (clean entities advance by the newlines their body
// contains; conflict entities contribute the marker-delimited block), and fills in
// LineSpanInOutput on the corresponding records in order. Conflicts are
// appended to records in the same order resolveMatches visits them, which
// is also reconstruction order, so a simple running index pairs them up.
func stampLineSpans(resolved []ResolvedEntity, records []ConflictRecord) {
	if len(records) == 0 {
		return
	}
	line := 1
	ri := 0
	for _, re := range resolved {
		if !re.Conflict {
			line += bytes.Count(re.Body, []byte("\n"))
			continue
		}
		if ri >= len(records) {
			break
		}
		start := line
		// Three marker lines plus each body, which ReconstructMarked always
		// follows with one added newline.
		blockLines := 5 + bytes.Count(re.OursBody, []byte("\n")) + bytes.Count(re.TheirsBody, []byte("\n"))
		records[ri].LineSpanInOutput = [2]int{start, start + blockLines - 1}
		line += blockLines
		ri++
	}
}

func countLines(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	n := 1
	for _, c := range b {
		if c == '\n' {
			n++
		}
	}
	return n
}

// resolveConflictWithImportSort behaves like resolveConflict but threads an
// ImportSortMode through to import-block resolution instead of always
// alphabetizing.
func resolveConflictWithImportSort(m MatchedEntity, language string, sortMode ImportSortMode) ResolvedEntity {
	if m.Ours.Kind == entity.KindImportBlock {
		var baseBody []byte
		if m.Base != nil {
			baseBody = m.Base.Body
		}
		merged, _ := MergeImportsSorted(baseBody, m.Ours.Body, m.Theirs.Body, language, sortMode)
		e := *m.Ours
		e.Body = merged
		return ResolvedEntity{Entity: e}
	}
	return resolveConflict(m, language)
}

// ReconstructMarked behaves like Reconstruct but sizes conflict markers to
// markerSize characters instead of the fixed 7 the teacher's Reconstruct
// used, and labels each marker with the conflicting entity's kind and name
// when available.
func ReconstructMarked(entities []ResolvedEntity, markerSize int) []byte {
	if markerSize <= 0 {
		markerSize = 7
	}
	if len(entities) == 0 {
		return nil
	}

	open := repeatByte('<', markerSize)
	sep := repeatByte('=', markerSize)
	close_ := repeatByte('>', markerSize)

	var buf []byte
	for _, e := range entities {
		if !e.Conflict {
			buf = append(buf, e.Body...)
			continue
		}
		header := conflictHeader(e)
		buf = append(buf, open...)
		buf = append(buf, ' ')
		buf = append(buf, []byte("ours"+header)...)
		buf = append(buf, '\n')
		buf = append(buf, e.OursBody...)
		buf = append(buf, '\n')
		buf = append(buf, sep...)
		buf = append(buf, '\n')
		buf = append(buf, e.TheirsBody...)
		buf = append(buf, '\n')
		buf = append(buf, close_...)
		buf = append(buf, ' ')
		buf = append(buf, []byte("theirs"+header)...)
		buf = append(buf, '\n')
	}
	return buf
}

func conflictHeader(e ResolvedEntity) string {
	if e.Name == "" {
		return ""
	}
	return fmt.Sprintf(" (%s %s)", e.Kind, e.Name)
}

func repeatByte(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
