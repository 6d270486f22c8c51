package query

import "fmt"

// Check verifies that spec satisfies the payload invariants of its kind.
//
// Descriptors built by a Facade always pass. Check exists for engines that
// receive a Spec from elsewhere (a zero Descriptor, a hand-written
// implementation) and must refuse it before dispatch.
//
// Check is a pure function with no side effects.
func Check(spec Spec) error {
	if spec == nil || isNilDescriptor(spec) {
		return &InvalidArgumentError{Param: ParamDescriptor, Reason: "is nil"}
	}
	if spec.Cache() == nil {
		return &InvalidArgumentError{Param: ParamCache, Reason: "descriptor is not bound to a cache context"}
	}

	switch spec.Kind() {
	case KindSQLFields:
		if spec.Clause() == "" {
			return missing(ParamQuery)
		}
	case KindFullText:
		if spec.ClassName() == "" {
			return missing(ParamClassName)
		}
		if spec.Clause() == "" {
			return missing(ParamSearch)
		}
	case KindScan, KindSPI:
		// Clause and class name are ignored for these kinds.
	default:
		return &InvalidArgumentError{
			Param:  ParamKind,
			Reason: fmt.Sprintf("unsupported query kind %d", uint8(spec.Kind())),
		}
	}

	return nil
}

// isNilDescriptor reports whether spec is a nil *Descriptor stored in a
// non-nil interface.
func isNilDescriptor(spec Spec) bool {
	n, ok := spec.(interface{ isNil() bool })
	return ok && n.isNil()
}
