package merge

import "testing"

func TestDefaultOptions(t *testing.T) {
	d := DefaultOptions()
	if d.MarkerSize != 7 {
		t.Errorf("expected MarkerSize 7, got %d", d.MarkerSize)
	}
	if d.RenameDetection == nil || !*d.RenameDetection {
		t.Error("expected RenameDetection true by default")
	}
	if d.ImportSort != ImportSortAlphabetical {
		t.Errorf("expected ImportSortAlphabetical by default, got %v", d.ImportSort)
	}
	if d.MaxBytes != 1<<20 {
		t.Errorf("expected MaxBytes 1MiB, got %d", d.MaxBytes)
	}
}

func TestOptionsZeroValueLeavesRenameDetectionUnset(t *testing.T) {
	var o Options
	if o.RenameDetection != nil {
		t.Fatal("a bare Options{} literal must leave RenameDetection nil (unset), not assume a value")
	}
}

func TestWithDefaultsFillsOnlyZeroFields(t *testing.T) {
	o := Options{MarkerSize: 3}
	got := o.withDefaults()
	if got.MarkerSize != 3 {
		t.Errorf("expected explicit MarkerSize to survive, got %d", got.MarkerSize)
	}
	if got.MaxBytes != 1<<20 {
		t.Errorf("expected MaxBytes to fall back to default, got %d", got.MaxBytes)
	}
	if got.RenameDetection == nil || !*got.RenameDetection {
		t.Error("expected unset RenameDetection to be promoted to the documented default (true)")
	}

	var zero Options
	got = zero.withDefaults()
	if got.MarkerSize != 7 || got.MaxBytes != 1<<20 {
		t.Errorf("expected both fields to fall back to defaults, got %+v", got)
	}
	if got.RenameDetection == nil || !*got.RenameDetection {
		t.Error("a bare Options{} passed through withDefaults must get RenameDetection promoted to true")
	}
}

// TestWithDefaultsPreservesExplicitFalse verifies that a caller who
// deliberately disables rename detection doesn't get overridden back to the
// default by withDefaults — this is the whole reason RenameDetection is a
// *bool instead of a bool: nil (unset) promotes to the default, but an
// explicit false must survive.
func TestWithDefaultsPreservesExplicitFalse(t *testing.T) {
	o := Options{RenameDetection: boolPtr(false)}
	got := o.withDefaults()
	if got.RenameDetection == nil || *got.RenameDetection {
		t.Error("expected an explicit RenameDetection=false to survive withDefaults")
	}
}

func TestImportSortModeString(t *testing.T) {
	cases := []struct {
		mode ImportSortMode
		want string
	}{
		{ImportSortAlphabetical, "alphabetical"},
		{ImportSortGrouped, "grouped"},
		{ImportSortPreserve, "preserve"},
	}
	for _, c := range cases {
		if got := c.mode.String(); got != c.want {
			t.Errorf("ImportSortMode(%d).String() = %q, want %q", c.mode, got, c.want)
		}
	}
}
