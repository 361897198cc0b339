package wasmhost

import (
	"github.com/wippyai/extsync/errors"
)

// Status is the result code returned to guests.
type Status uint32

const (
	StatusOK Status = iota
	StatusInvalidCount
	StatusInvalidHandleKind
	StatusUnknownObject
	StatusAllocation
	StatusNotImported
	StatusAlreadyImported
	StatusInvalidEnum
	StatusMemoryAccess
	StatusOther
)

var statusByKind = map[errors.Kind]Status{
	errors.KindInvalidCount:      StatusInvalidCount,
	errors.KindInvalidHandleKind: StatusInvalidHandleKind,
	errors.KindUnknownObject:     StatusUnknownObject,
	errors.KindAllocation:        StatusAllocation,
	errors.KindNotImported:       StatusNotImported,
	errors.KindAlreadyImported:   StatusAlreadyImported,
	errors.KindInvalidEnum:       StatusInvalidEnum,
	errors.KindMemoryAccess:      StatusMemoryAccess,
}

// StatusOf maps an error to the code a guest sees.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	if s, ok := statusByKind[errors.KindOf(err)]; ok {
		return s
	}
	return StatusOther
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidCount:
		return "invalid_count"
	case StatusInvalidHandleKind:
		return "invalid_handle_kind"
	case StatusUnknownObject:
		return "unknown_object"
	case StatusAllocation:
		return "allocation"
	case StatusNotImported:
		return "not_imported"
	case StatusAlreadyImported:
		return "already_imported"
	case StatusInvalidEnum:
		return "invalid_enum"
	case StatusMemoryAccess:
		return "memory_access"
	default:
		return "other"
	}
}
