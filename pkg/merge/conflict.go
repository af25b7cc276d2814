package merge

import "github.com/semergehq/semerge/pkg/entity"

// ConflictReason classifies why a ConflictRecord could not be resolved
// automatically.
type ConflictReason int

const (
	ReasonBothModifiedIncompatible ConflictReason = iota
	ReasonModifyDelete
	ReasonRenameRename
	ReasonKindChange
)

func (r ConflictReason) String() string {
	switch r {
	case ReasonModifyDelete:
		return "modify_delete"
	case ReasonRenameRename:
		return "rename_rename"
	case ReasonKindChange:
		return "kind_change"
	}
	return "both_modified_incompatible"
}

// ConflictRecord describes a single unresolved entity in a Merge result.
type ConflictRecord struct {
	EntityPath       string // parent names joined with ">", then the entity's own name
	Kind             entity.EntityKind
	Reason           ConflictReason
	LineSpanInOutput [2]int // 1-indexed [startLine, endLine] within Result.Text
}

// conflictReasonFor derives a ConflictReason for a matched entity given its
// disposition and rename state. Called only for matches the resolution
// loop has already decided are unresolvable.
func conflictReasonFor(m MatchedEntity) ConflictReason {
	if m.Renamed == RenameBoth {
		return ReasonRenameRename
	}
	if m.Disposition == DeleteVsModify {
		return ReasonModifyDelete
	}
	if m.Base != nil && m.Ours != nil && m.Theirs != nil &&
		m.Base.Kind == entity.KindDeclaration &&
		(m.Ours.DeclKind != m.Theirs.DeclKind) {
		return ReasonKindChange
	}
	return ReasonBothModifiedIncompatible
}

// entityPath renders an EntityPath from an entity's parent path and name,
// e.g. "Server>handleRequest" for a method nested under a struct.
func entityPath(e *entity.Entity) string {
	if e == nil {
		return ""
	}
	path := ""
	for _, p := range e.ParentPath {
		path += p.Name + ">"
	}
	return path + e.Name
}
