package registry

import "errors"

var (
	ErrDuplicateName       = errors.New("the module already exists")
	ErrModuleDoesNotExist  = errors.New("the module does not exist")
	ErrNotAuthorized       = errors.New("you are not the owner or admin of this module")
	ErrVersionNotBumped    = errors.New("version must be bumped")
	ErrVersionDoesNotExist = errors.New("the version does not exist")
	ErrRepeatedPointer     = errors.New("repeated pointer")
	ErrInconsistentChanges = errors.New("inconsistent changes")
	ErrInvalidModule       = errors.New("invalid module")
	ErrNotEmpty            = errors.New("registry is not empty")
	ErrMismatchedBatch     = errors.New("names and versions must have equal length")
	ErrAdminAlreadyExists  = errors.New("account is already an admin")
	ErrAdminDoesNotExist   = errors.New("account is not an admin")
)
