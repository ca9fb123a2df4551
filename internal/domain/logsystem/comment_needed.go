package logsystem

import (
	"fmt"
)

// Operation kinds for which a change comment can be required
const (
	CommentPartEdit            = "part_edit"
	CommentPartCreate          = "part_create"
	CommentPartDelete          = "part_delete"
	CommentPartStockOperation  = "part_stock_operation"
	CommentDatastructureEdit   = "datastructure_edit"
	CommentDatastructureCreate = "datastructure_create"
	CommentDatastructureDelete = "datastructure_delete"
)

// CommentTypes lists every valid operation kind
var CommentTypes = []string{
	CommentPartEdit, CommentPartCreate, CommentPartDelete, CommentPartStockOperation,
	CommentDatastructureEdit, CommentDatastructureCreate, CommentDatastructureDelete,
}

func isCommentType(t string) bool {
	for _, known := range CommentTypes {
		if known == t {
			return true
		}
	}
	return false
}

// EventCommentNeededHelper knows which operations require a change comment
type EventCommentNeededHelper struct {
	enforced map[string]bool
}

// NewEventCommentNeededHelper creates a helper enforcing comments for types
func NewEventCommentNeededHelper(types []string) (*EventCommentNeededHelper, error) {
	h := &EventCommentNeededHelper{enforced: make(map[string]bool, len(types))}
	for _, t := range types {
		if !isCommentType(t) {
			return nil, fmt.Errorf("invalid comment type %q", t)
		}
		h.enforced[t] = true
	}
	return h, nil
}

// IsCommentNeeded returns true if operations of type t need a comment
func (h *EventCommentNeededHelper) IsCommentNeeded(t string) (bool, error) {
	if !isCommentType(t) {
		return false, fmt.Errorf("invalid comment type %q", t)
	}
	return h.enforced[t], nil
}
