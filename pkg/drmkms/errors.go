package drmkms

import "errors"

// Sentinel errors embedders can branch on with errors.Is rather than
// matching returned strings.
var (
	// ErrCapabilityUnsupported is returned when the kernel refuses
	// DRM_CLIENT_CAP_ATOMIC or DRM_CLIENT_CAP_UNIVERSAL_PLANES. Fatal for
	// device construction.
	ErrCapabilityUnsupported = errors.New("drmkms: capability unsupported by kernel")

	// ErrUnknownObject is returned by Configure when a connector, encoder
	// or CRTC ID doesn't resolve against the inventory.
	ErrUnknownObject = errors.New("drmkms: unknown object ID")

	// ErrTopologyInvalid is returned by Configure when the requested
	// connector/encoder/CRTC tuple isn't a legal DRM topology.
	ErrTopologyInvalid = errors.New("drmkms: encoder/CRTC not compatible with connector")

	// ErrUnknownMode is returned by Configure when the given mode isn't
	// byte-identical to one already present in the connector's mode list.
	ErrUnknownMode = errors.New("drmkms: mode not found on connector")

	// ErrBlobAllocation is returned by Configure when the kernel refuses to
	// allocate the mode blob.
	ErrBlobAllocation = errors.New("drmkms: mode blob allocation failed")

	// ErrPropertyNotFound is returned by the Put* methods when no
	// descriptor in the target's property bag matches the given name.
	ErrPropertyNotFound = errors.New("drmkms: property not found")

	// ErrNotConfigured is returned when a connector/CRTC-implicit Put is
	// attempted, or a modeset-props helper is used, before Configure has
	// succeeded.
	ErrNotConfigured = errors.New("drmkms: pipeline not configured")

	// ErrRequestDone is returned by Put*/Commit methods on a Request that
	// has already been committed or destroyed.
	ErrRequestDone = errors.New("drmkms: request already committed or destroyed")
)
