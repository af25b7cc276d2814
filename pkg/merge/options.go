package merge

// ImportSortMode selects how a merged import/use block is ordered once its
// member set has been unioned.
type ImportSortMode int

const (
	// ImportSortAlphabetical sorts the merged import set lexicographically.
	// This is the default: it is what the teacher's set-union merge already
	// produced, and it gives deterministic output independent of which side
	// happened to list an import first.
	ImportSortAlphabetical ImportSortMode = iota
	// ImportSortGrouped separates Go standard-library imports from
	// third-party ones, each group sorted alphabetically with a blank line
	// between groups. Only Go import blocks honor it; other languages are
	// rendered as under ImportSortAlphabetical.
	ImportSortGrouped
	// ImportSortPreserve keeps ours' original import ordering for entries
	// that survive from ours, appending new theirs-only imports at the end
	// in their own alphabetical order. Like ImportSortGrouped, it applies to
	// Go import blocks only.
	ImportSortPreserve
)

func (m ImportSortMode) String() string {
	switch m {
	case ImportSortGrouped:
		return "grouped"
	case ImportSortPreserve:
		return "preserve"
	}
	return "alphabetical"
}

// Options configures a call to Merge.
type Options struct {
	// MarkerSize is the number of marker characters ("<", "=", ">") used in
	// conflict output. Defaults to 7, matching standard diff3 conventions.
	MarkerSize int

	// RenameDetection toggles the structural-hash rename-matching pass.
	// Defaults to true. This is a *bool rather than bool because a bool
	// zero value can't distinguish "caller left this unset" from "caller
	// explicitly disabled it" — withDefaults needs that distinction to
	// promote an unset field to the documented default without silently
	// re-enabling detection a caller turned off on purpose. nil means
	// unset; withDefaults fills it in from DefaultOptions().
	RenameDetection *bool

	// ImportSort selects how merged import blocks are ordered. Defaults to
	// ImportSortAlphabetical.
	ImportSort ImportSortMode

	// MaxBytes bounds the size of any single side considered for structural
	// extraction; files larger than this fall back to a text-level merge.
	// Defaults to 1 MiB (1048576 bytes).
	MaxBytes int
}

// DefaultOptions returns the Options Merge uses when none are supplied.
func DefaultOptions() Options {
	return Options{
		MarkerSize:      7,
		RenameDetection: boolPtr(true),
		ImportSort:      ImportSortAlphabetical,
		MaxBytes:        1 << 20,
	}
}

func boolPtr(b bool) *bool { return &b }

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MarkerSize <= 0 {
		o.MarkerSize = d.MarkerSize
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = d.MaxBytes
	}
	if o.RenameDetection == nil {
		o.RenameDetection = d.RenameDetection
	}
	return o
}
