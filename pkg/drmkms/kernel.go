package drmkms

// kernel is the ioctl transport the rest of the package talks to. It exists
// so tests can substitute an in-memory implementation instead of a real
// /dev/dri node.
//
// Every method here except close corresponds to exactly one DRM ioctl; the
// core touches no other kernel surface.
type kernel interface {
	setClientCap(capability, value uint64) error

	// getResourceIDs issues DRM_IOCTL_MODE_GETRESOURCES and returns the
	// connector, encoder and CRTC ID lists (framebuffers are ignored —
	// this core never allocates or scans out a framebuffer itself).
	getResourceIDs() (connectorIDs, encoderIDs, crtcIDs []uint32, err error)

	// getPlaneIDs issues DRM_IOCTL_MODE_GETPLANERESOURCES.
	getPlaneIDs() ([]uint32, error)

	getConnector(id uint32) (rawConnector, error)
	getEncoder(id uint32) (rawEncoder, error)
	getCRTC(id uint32) (rawCRTC, error)
	getPlane(id uint32) (rawPlane, error)

	// getObjectProperties issues DRM_IOCTL_MODE_OBJ_GETPROPERTIES for the
	// given object/object-type pair.
	getObjectProperties(objID, objType uint32) ([]objectProperty, error)

	// getPropertyDescriptor issues DRM_IOCTL_MODE_GETPROPERTY for a single
	// property ID.
	getPropertyDescriptor(id uint32) (PropertyDescriptor, error)

	createBlob(data []byte) (uint32, error)
	destroyBlob(id uint32) error

	atomicCommit(req atomicCommitData, flags uint32, userData uint64) error

	close() error
}

// objectProperty is one (property-ID, current-value) pair as returned by
// MODE_OBJ_GETPROPERTIES, before descriptors are resolved.
type objectProperty struct {
	ID    uint32
	Value uint64
}

// rawConnector, rawEncoder, rawCRTC and rawPlane are the kernel-facing
// shapes the backend returns; device.go folds them into the exported
// Connector/Encoder/CRTC/Plane arena types together with resolved property
// descriptors.
type rawConnector struct {
	ID         uint32
	Connection ConnectionStatus
	EncoderIDs []uint32
	Modes      []ModeInfo
	Props      []objectProperty
}

type rawEncoder struct {
	ID            uint32
	PossibleCRTCs uint32
}

type rawCRTC struct {
	ID    uint32
	Props []objectProperty
}

type rawPlane struct {
	ID            uint32
	PossibleCRTCs uint32
	Formats       []uint32
	Props         []objectProperty
}

// atomicCommitData is the flattened, kernel-ABI-shaped view of a Request's
// pending property settings: one slot per distinct object in objs/
// countProps, and countProps[i] consecutive entries in propIDs/propValues
// per object — the same grouping DRM_IOCTL_MODE_ATOMIC expects.
type atomicCommitData struct {
	objs       []uint32
	countProps []uint32
	propIDs    []uint32
	propValues []uint64
}

// DRM object-type tags used by MODE_OBJ_GETPROPERTIES, verbatim from
// drm_mode.h.
const (
	drmModeObjectCRTC      = 0xcccccccc
	drmModeObjectConnector = 0xc0c0c0c0
	drmModeObjectEncoder   = 0xe0e0e0e0
	drmModeObjectMode      = 0xdededede
	drmModeObjectProperty  = 0xb0b0b0b0
	drmModeObjectFB        = 0xfbfbfbfb
	drmModeObjectBlob      = 0xbbbbbbbb
	drmModeObjectPlane     = 0xeeeeeeee
	drmModeObjectAny       = 0
)

// DRM client capabilities set via SET_CLIENT_CAP.
const (
	drmClientCapUniversalPlanes = 2
	drmClientCapAtomic          = 3
)
