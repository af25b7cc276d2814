package merge

import (
	"fmt"

	"github.com/semergehq/semerge/pkg/entity"
)

// Disposition describes the merge status of a matched entity.
type Disposition int

const (
	Unchanged    Disposition = iota
	OursOnly                 // ours modified, theirs unchanged
	TheirsOnly               // theirs modified, ours unchanged
	BothSame                 // both modified identically
	Conflict                 // both modified differently
	AddedOurs                // new entity in ours, not in base
	AddedTheirs              // new entity in theirs, not in base
	DeletedOurs              // deleted by ours
	DeletedTheirs            // deleted by theirs
	DeleteVsModify           // one deleted, other modified
)

func (d Disposition) String() string {
	switch d {
	case Unchanged:
		return "Unchanged"
	case OursOnly:
		return "OursOnly"
	case TheirsOnly:
		return "TheirsOnly"
	case BothSame:
		return "BothSame"
	case Conflict:
		return "Conflict"
	case AddedOurs:
		return "AddedOurs"
	case AddedTheirs:
		return "AddedTheirs"
	case DeletedOurs:
		return "DeletedOurs"
	case DeletedTheirs:
		return "DeletedTheirs"
	case DeleteVsModify:
		return "DeleteVsModify"
	}
	return fmt.Sprintf("Disposition(%d)", int(d))
}

// RenameSide records which side(s), if any, a matched entity was linked to
// its base counterpart through rename detection (matching structural hash
// under a changed name) rather than an identity-key hit.
type RenameSide int

const (
	RenameNone RenameSide = iota
	RenameOurs
	RenameTheirs
	RenameBoth
)

func (r RenameSide) String() string {
	switch r {
	case RenameOurs:
		return "RenameOurs"
	case RenameTheirs:
		return "RenameTheirs"
	case RenameBoth:
		return "RenameBoth"
	}
	return "RenameNone"
}

// MatchedEntity pairs an entity key with its three-way merge disposition.
type MatchedEntity struct {
	Key         string
	Disposition Disposition
	Base        *entity.Entity
	Ours        *entity.Entity
	Theirs      *entity.Entity
	Renamed     RenameSide
}

// MatchEntities performs three-way entity matching between base, ours, and theirs.
// It builds identity-keyed maps for each side, computes the merged key order via
// orderKeys (ours-anchor ordering: ours' own sequence is the backbone, with
// base/theirs-only keys spliced in next to their nearest surviving neighbor
// rather than appended after everything else), and classifies each key's
// disposition based on presence and hash comparison across the three sides.
func MatchEntities(base, ours, theirs *entity.EntityList) []MatchedEntity {
	baseMap := buildEntityMap(base)
	oursMap := buildEntityMap(ours)
	theirsMap := buildEntityMap(theirs)

	keys := orderKeys(base, ours, theirs)

	result := make([]MatchedEntity, 0, len(keys))
	for _, key := range keys {
		b := baseMap[key]
		o := oursMap[key]
		t := theirsMap[key]

		m := MatchedEntity{
			Key:    key,
			Base:   b,
			Ours:   o,
			Theirs: t,
		}
		m.Disposition = classify(b, o, t)
		result = append(result, m)
	}

	return result
}

// classify determines the Disposition for an entity across three revisions.
func classify(base, ours, theirs *entity.Entity) Disposition {
	inBase := base != nil
	inOurs := ours != nil
	inTheirs := theirs != nil

	switch {
	// Present in all three
	case inBase && inOurs && inTheirs:
		oursChanged := ours.BodyHash != base.BodyHash
		theirsChanged := theirs.BodyHash != base.BodyHash
		switch {
		case !oursChanged && !theirsChanged:
			return Unchanged
		case oursChanged && !theirsChanged:
			return OursOnly
		case !oursChanged && theirsChanged:
			return TheirsOnly
		case ours.BodyHash == theirs.BodyHash:
			return BothSame
		default:
			return Conflict
		}

	// In base and ours, not theirs: theirs deleted
	case inBase && inOurs && !inTheirs:
		if ours.BodyHash != base.BodyHash {
			return DeleteVsModify
		}
		return DeletedTheirs

	// In base and theirs, not ours: ours deleted
	case inBase && !inOurs && inTheirs:
		if theirs.BodyHash != base.BodyHash {
			return DeleteVsModify
		}
		return DeletedOurs

	// In base only: both deleted (treat as Unchanged since both agree)
	case inBase && !inOurs && !inTheirs:
		return Unchanged

	// Not in base, in ours only
	case !inBase && inOurs && !inTheirs:
		return AddedOurs

	// Not in base, in theirs only
	case !inBase && !inOurs && inTheirs:
		return AddedTheirs

	// Not in base, in both ours and theirs
	case !inBase && inOurs && inTheirs:
		if ours.BodyHash == theirs.BodyHash {
			return BothSame
		}
		return Conflict
	}

	// Should not reach here
	return Unchanged
}

// buildEntityMap indexes entities by their identity key.
// If duplicate keys exist, the last entity with that key wins.
func buildEntityMap(el *entity.EntityList) map[string]*entity.Entity {
	m := make(map[string]*entity.Entity, len(el.Entities))
	for i := range el.Entities {
		key := el.Entities[i].IdentityKey()
		m[key] = &el.Entities[i]
	}
	return m
}

// orderKeys computes the merged key order. Ours' own sequence is the anchor
// backbone: the merge driver's working copy is ours, so its layout is what a
// reviewer already has open and is the least surprising thing to preserve.
// Keys that theirs or base contribute but that don't already appear in the
// backbone are spliced in immediately after their nearest preceding key in
// that side's own sequence which does survive into the backbone — an
// LCS-style positional anchor — rather than being appended in bulk after
// every surviving entity. A key with no preceding shared neighbor on its own
// side is spliced at the very front.
func orderKeys(base, ours, theirs *entity.EntityList) []string {
	backbone := uniqueOrderedKeys(ours)
	inBackbone := make(map[string]bool, len(backbone))
	for _, k := range backbone {
		inBackbone[k] = true
	}

	backbone = spliceAnchored(backbone, inBackbone, uniqueOrderedKeys(theirs))
	backbone = spliceAnchored(backbone, inBackbone, uniqueOrderedKeys(base))
	return backbone
}

// uniqueOrderedKeys returns el's entities' identity keys in file order, with
// duplicates collapsed to their first occurrence.
func uniqueOrderedKeys(el *entity.EntityList) []string {
	seen := map[string]bool{}
	var keys []string
	for i := range el.Entities {
		key := el.Entities[i].IdentityKey()
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// spliceAnchored inserts every key in src that isn't already in backbone
// (per inBackbone) immediately after the nearest preceding key in src that
// is already part of the backbone, preserving src's relative order among
// keys anchored at the same point. A key with no preceding anchor in src
// (src's own additions before its first shared neighbor) is inserted at the
// very front. Newly inserted keys are marked in inBackbone so a later call
// against a third sequence treats them as already placed.
func spliceAnchored(backbone []string, inBackbone map[string]bool, src []string) []string {
	after := map[string][]string{}
	var front []string
	lastAnchor := ""
	haveAnchor := false

	for _, k := range src {
		if inBackbone[k] {
			lastAnchor = k
			haveAnchor = true
			continue
		}
		if haveAnchor {
			after[lastAnchor] = append(after[lastAnchor], k)
		} else {
			front = append(front, k)
		}
	}

	result := make([]string, 0, len(backbone)+len(src))
	result = append(result, front...)
	for _, k := range backbone {
		result = append(result, k)
		result = append(result, after[k]...)
	}

	for _, k := range front {
		inBackbone[k] = true
	}
	for _, ins := range after {
		for _, k := range ins {
			inBackbone[k] = true
		}
	}
	return result
}
