package merge

import "github.com/semergehq/semerge/pkg/entity"

// renameBucketLimit caps the number of candidates considered per
// (parent path, declaration kind) bucket during rename detection. Rename
// matching is O(n*m) within a bucket; real-world classes and files rarely
// hold more than a handful of same-kind declarations deleted and added in
// the same revision, so a bucket this size signals pathological input
// (generated code, a wholesale rewrite) where guessing renames is more
// likely to mislead than help.
const renameBucketLimit = 40

// DetectRenames re-examines DeletedOurs/DeletedTheirs/AddedOurs/AddedTheirs
// entries in matches and, for pairs whose StructuralHash agrees within the
// same (parent path, declaration kind) bucket, folds them into a single
// MatchedEntity with Disposition reclassified and Renamed set accordingly.
// It never touches entities resolved by identity key — rename detection
// only fires when identity matching has already concluded an entity was
// deleted on one side and a same-shaped entity appeared on the other (or
// both).
type renameBucketKey struct {
	parent   string
	declKind string
}

func DetectRenames(matches []MatchedEntity) []MatchedEntity {
	type bucketKey = renameBucketKey
	deletedOurs := map[bucketKey][]int{}
	deletedTheirs := map[bucketKey][]int{}
	addedOurs := map[bucketKey][]int{}
	addedTheirs := map[bucketKey][]int{}

	bucketOf := func(e *entity.Entity) bucketKey {
		return bucketKey{parent: parentPathKeyOf(e), declKind: e.DeclKind}
	}

	for i, m := range matches {
		if m.Base == nil && m.Ours == nil && m.Theirs == nil {
			continue
		}
		switch m.Disposition {
		case DeletedOurs:
			if m.Base != nil && m.Base.Kind == entity.KindDeclaration {
				deletedOurs[bucketOf(m.Base)] = append(deletedOurs[bucketOf(m.Base)], i)
			}
		case DeletedTheirs:
			if m.Base != nil && m.Base.Kind == entity.KindDeclaration {
				deletedTheirs[bucketOf(m.Base)] = append(deletedTheirs[bucketOf(m.Base)], i)
			}
		case AddedOurs:
			if m.Ours != nil && m.Ours.Kind == entity.KindDeclaration {
				addedOurs[bucketOf(m.Ours)] = append(addedOurs[bucketOf(m.Ours)], i)
			}
		case AddedTheirs:
			if m.Theirs != nil && m.Theirs.Kind == entity.KindDeclaration {
				addedTheirs[bucketOf(m.Theirs)] = append(addedTheirs[bucketOf(m.Theirs)], i)
			}
		}
	}

	consumed := map[int]bool{}

	link := func(delIdx map[bucketKey][]int, addIdx map[bucketKey][]int, side RenameSide) {
		for key, delIs := range delIdx {
			addIs := addIdx[key]
			if len(delIs) == 0 || len(addIs) == 0 {
				continue
			}
			if len(delIs) > renameBucketLimit || len(addIs) > renameBucketLimit {
				continue
			}
			for _, di := range delIs {
				if consumed[di] {
					continue
				}
				var best int = -1
				bestDist := -1
				delBase := matches[di].Base
				for _, ai := range addIs {
					if consumed[ai] {
						continue
					}
					var addEntity *entity.Entity
					if side == RenameOurs {
						addEntity = matches[ai].Ours
					} else {
						addEntity = matches[ai].Theirs
					}
					if addEntity == nil || addEntity.StructuralHash != delBase.StructuralHash {
						continue
					}
					dist := editDistance(delBase.Name, addEntity.Name)
					if best == -1 || dist < bestDist {
						best, bestDist = ai, dist
					}
				}
				if best == -1 {
					continue
				}
				consumed[di] = true
				consumed[best] = true
				foldRename(matches, di, best, side)
			}
		}
	}

	link(deletedOurs, addedOurs, RenameOurs)
	link(deletedTheirs, addedTheirs, RenameTheirs)
	detectRenameRename(matches, consumed, addedOurs, addedTheirs, bucketOf)

	out := make([]MatchedEntity, 0, len(matches))
	for i := range matches {
		if matches[i].Key == "" {
			// Folded-away half of a rename pair; its fields were merged into
			// the surviving entry in foldRename.
			continue
		}
		out = append(out, matches[i])
	}
	return out
}

// foldRename merges the added-side entity at index addIdx into the
// deleted-side MatchedEntity at index delIdx, reclassifies its
// Disposition, and marks addIdx for removal by clearing its Key so the
// caller's filter drops it.
func foldRename(matches []MatchedEntity, delIdx, addIdx int, side RenameSide) {
	del := &matches[delIdx]
	add := &matches[addIdx]

	switch side {
	case RenameOurs:
		del.Ours = add.Ours
		// A rename changes the declaration header regardless of whether the
		// body also changed, so it is always an ours-side modification here.
		del.Disposition = OursOnly
		del.Renamed = RenameOurs
	case RenameTheirs:
		del.Theirs = add.Theirs
		del.Disposition = TheirsOnly
		del.Renamed = RenameTheirs
	}

	if del.Ours != nil && del.Theirs != nil {
		if del.Ours.BodyHash == del.Theirs.BodyHash {
			del.Disposition = BothSame
		} else if del.Disposition == OursOnly && del.Theirs.BodyHash != del.Base.BodyHash {
			del.Disposition = Conflict
		} else if del.Disposition == TheirsOnly && del.Ours.BodyHash != del.Base.BodyHash {
			del.Disposition = Conflict
		}
	}

	add.Key = "" // signal: folded into matches[delIdx], drop from output
}

// detectRenameRename looks for a base entity both sides independently
// stopped emitting under its original identity key (classify already
// folded that into Unchanged, since neither side disagrees that the old
// key is gone) while each side separately added a same-shaped declaration
// under a different new name in the same bucket. That combination is a
// rename-rename: both sides renamed the same declaration, but to
// different names, which this module cannot reconcile automatically.
func detectRenameRename(matches []MatchedEntity, consumed map[int]bool, addedOurs, addedTheirs map[renameBucketKey][]int, bucketOf func(*entity.Entity) renameBucketKey) {
	for bi := range matches {
		m := &matches[bi]
		if m.Disposition != Unchanged || m.Base == nil || m.Ours != nil || m.Theirs != nil {
			continue
		}
		if m.Base.Kind != entity.KindDeclaration {
			continue
		}
		key := bucketOf(m.Base)
		ourCands := addedOurs[key]
		theirCands := addedTheirs[key]
		var ourIdx, theirIdx = -1, -1
		for _, oi := range ourCands {
			if consumed[oi] || matches[oi].Ours == nil {
				continue
			}
			if matches[oi].Ours.StructuralHash == m.Base.StructuralHash {
				ourIdx = oi
				break
			}
		}
		for _, ti := range theirCands {
			if consumed[ti] || matches[ti].Theirs == nil {
				continue
			}
			if matches[ti].Theirs.StructuralHash == m.Base.StructuralHash {
				theirIdx = ti
				break
			}
		}
		if ourIdx == -1 || theirIdx == -1 {
			continue
		}
		if matches[ourIdx].Ours.Name == matches[theirIdx].Theirs.Name {
			continue // same new name on both sides isn't a rename conflict
		}
		consumed[ourIdx] = true
		consumed[theirIdx] = true
		m.Ours = matches[ourIdx].Ours
		m.Theirs = matches[theirIdx].Theirs
		m.Disposition = Conflict
		m.Renamed = RenameBoth
		matches[ourIdx].Key = ""
		matches[theirIdx].Key = ""
	}
}

func parentPathKeyOf(e *entity.Entity) string {
	if e == nil {
		return "-"
	}
	if len(e.ParentPath) == 0 {
		return "-"
	}
	s := ""
	for i, p := range e.ParentPath {
		if i > 0 {
			s += ">"
		}
		s += p.String()
	}
	return s
}

// editDistance computes Levenshtein distance, used only to break ties when
// more than one added declaration in a bucket shares a deleted one's
// structural hash (e.g. two near-identical helper functions renamed in the
// same commit).
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
