// Package status defines the error taxonomy shared by every indexlib package.
//
// Errors are classified exclusively with errors.Is against the sentinels
// below. Packages wrap them with context:
//
//	return fmt.Errorf("commit version %d: %w", id, status.ErrInvalidArgs)
//
// and callers test with the predicates:
//
//	if status.IsExist(err) {
//	    // another writer published this version id first
//	}
package status
