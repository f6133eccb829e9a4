package drmkms

import (
	"fmt"
	"io"
	"log/slog"
)

// discardLogger gives tests a *slog.Logger that writes nowhere, so test
// output isn't cluttered with the same enumeration/commit logging Device
// emits in production.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeKernel is an in-memory kernel backend used by tests in place of a
// real /dev/dri node. It implements the same kernel interface linuxKernel
// does, so the rest of the package can be exercised without a real DRM
// device.
type fakeKernel struct {
	connectors []rawConnector
	encoders   []rawEncoder
	crtcs      []rawCRTC
	planes     []rawPlane
	props      map[uint32]PropertyDescriptor

	nextBlobID uint32
	blobs      map[uint32][]byte

	commits []fakeCommit

	closed bool

	failSetCapAtomic           error
	failSetCapUniversalPlanes  error
	failCreateBlob             error
	failCommit                 error
	destroyedBlobs             []uint32
}

type fakeCommit struct {
	data     atomicCommitData
	flags    uint32
	userData uint64
}

func newFakeKernel() *fakeKernel {
	return &fakeKernel{
		props: make(map[uint32]PropertyDescriptor),
		blobs: make(map[uint32][]byte),
	}
}

func (k *fakeKernel) setClientCap(capability, value uint64) error {
	switch capability {
	case drmClientCapAtomic:
		if k.failSetCapAtomic != nil {
			return k.failSetCapAtomic
		}
	case drmClientCapUniversalPlanes:
		if k.failSetCapUniversalPlanes != nil {
			return k.failSetCapUniversalPlanes
		}
	}
	return nil
}

func (k *fakeKernel) getResourceIDs() (connectorIDs, encoderIDs, crtcIDs []uint32, err error) {
	for _, c := range k.connectors {
		connectorIDs = append(connectorIDs, c.ID)
	}
	for _, e := range k.encoders {
		encoderIDs = append(encoderIDs, e.ID)
	}
	for _, c := range k.crtcs {
		crtcIDs = append(crtcIDs, c.ID)
	}
	return connectorIDs, encoderIDs, crtcIDs, nil
}

func (k *fakeKernel) getPlaneIDs() ([]uint32, error) {
	var ids []uint32
	for _, p := range k.planes {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (k *fakeKernel) getConnector(id uint32) (rawConnector, error) {
	for _, c := range k.connectors {
		if c.ID == id {
			return c, nil
		}
	}
	return rawConnector{}, fmt.Errorf("fakeKernel: no such connector %d", id)
}

func (k *fakeKernel) getEncoder(id uint32) (rawEncoder, error) {
	for _, e := range k.encoders {
		if e.ID == id {
			return e, nil
		}
	}
	return rawEncoder{}, fmt.Errorf("fakeKernel: no such encoder %d", id)
}

func (k *fakeKernel) getCRTC(id uint32) (rawCRTC, error) {
	for _, c := range k.crtcs {
		if c.ID == id {
			return c, nil
		}
	}
	return rawCRTC{}, fmt.Errorf("fakeKernel: no such crtc %d", id)
}

func (k *fakeKernel) getPlane(id uint32) (rawPlane, error) {
	for _, p := range k.planes {
		if p.ID == id {
			return p, nil
		}
	}
	return rawPlane{}, fmt.Errorf("fakeKernel: no such plane %d", id)
}

func (k *fakeKernel) getObjectProperties(objID, objType uint32) ([]objectProperty, error) {
	switch objType {
	case drmModeObjectConnector:
		c, err := k.getConnector(objID)
		if err != nil {
			return nil, err
		}
		return c.Props, nil
	case drmModeObjectCRTC:
		c, err := k.getCRTC(objID)
		if err != nil {
			return nil, err
		}
		return c.Props, nil
	case drmModeObjectPlane:
		p, err := k.getPlane(objID)
		if err != nil {
			return nil, err
		}
		return p.Props, nil
	default:
		return nil, fmt.Errorf("fakeKernel: unsupported object type %d", objType)
	}
}

func (k *fakeKernel) getPropertyDescriptor(id uint32) (PropertyDescriptor, error) {
	d, ok := k.props[id]
	if !ok {
		return PropertyDescriptor{}, fmt.Errorf("fakeKernel: no such property %d", id)
	}
	return d, nil
}

func (k *fakeKernel) createBlob(data []byte) (uint32, error) {
	if k.failCreateBlob != nil {
		return 0, k.failCreateBlob
	}
	k.nextBlobID++
	id := k.nextBlobID
	cp := make([]byte, len(data))
	copy(cp, data)
	k.blobs[id] = cp
	return id, nil
}

func (k *fakeKernel) destroyBlob(id uint32) error {
	if _, ok := k.blobs[id]; !ok {
		return fmt.Errorf("fakeKernel: no such blob %d", id)
	}
	delete(k.blobs, id)
	k.destroyedBlobs = append(k.destroyedBlobs, id)
	return nil
}

func (k *fakeKernel) atomicCommit(data atomicCommitData, flags uint32, userData uint64) error {
	if k.failCommit != nil {
		return k.failCommit
	}
	k.commits = append(k.commits, fakeCommit{data: data, flags: flags, userData: userData})
	return nil
}

func (k *fakeKernel) close() error {
	k.closed = true
	return nil
}

// --- fixture construction -------------------------------------------------

// These constants name the kernel object IDs used by newFixtureKernel, so
// tests can reference them without magic numbers.
const (
	fixtureConnectorID = 10
	fixtureEncoderID   = 20
	fixtureCRTCID      = 30
	// fixtureCRTCIDAlt is a second CRTC outside fixtureEncoderID's
	// possible-CRTCs mask, used to exercise ErrTopologyInvalid.
	fixtureCRTCIDAlt = 31
	fixturePrimaryID = 40
	fixtureOverlayID   = 41
	fixtureCursorID    = 42
)

var fixtureModePreferred = ModeInfo{
	Clock: 148500, Hdisplay: 1920, HsyncStart: 2008, HsyncEnd: 2052,
	Htotal: 2200, Vdisplay: 1080, VsyncStart: 1084, VsyncEnd: 1089,
	Vtotal: 1125, Vrefresh: 60, Type: 0x48, Name: "1920x1080",
}

var fixtureModeAlternate = ModeInfo{
	Clock: 74250, Hdisplay: 1280, HsyncStart: 1390, HsyncEnd: 1430,
	Htotal: 1650, Vdisplay: 720, VsyncStart: 725, VsyncEnd: 730,
	Vtotal: 750, Vrefresh: 60, Type: 0x40, Name: "1280x720",
}

// newFixtureKernel builds a representative topology: one connected HDMI
// connector, one encoder, two CRTCs (one reachable from the encoder, one
// not, for topology-validation tests), and three planes (primary,
// overlay, cursor).
func newFixtureKernel() *fakeKernel {
	k := newFakeKernel()

	const (
		propCRTCIDOnConnector = 100
		propModeID            = 101
		propActive            = 102
		propType              = 103
		propFBID              = 104
		propCRTCIDOnPlane     = 105
		propSrcX              = 106
		propSrcY              = 107
		propSrcW              = 108
		propSrcH              = 109
		propCrtcX             = 110
		propCrtcY             = 111
		propCrtcW             = 112
		propCrtcH             = 113
	)

	k.props[propCRTCIDOnConnector] = PropertyDescriptor{ID: propCRTCIDOnConnector, Name: "CRTC_ID", Type: PropertyTypeObject}
	k.props[propModeID] = PropertyDescriptor{ID: propModeID, Name: "MODE_ID", Type: PropertyTypeBlob}
	k.props[propActive] = PropertyDescriptor{ID: propActive, Name: "ACTIVE", Type: PropertyTypeRange, Min: 0, Max: 1}
	k.props[propType] = PropertyDescriptor{ID: propType, Name: "type", Type: PropertyTypeEnum, EnumValues: []EnumValue{
		{Value: uint64(PlaneTypeOverlay), Name: "Overlay"},
		{Value: uint64(PlaneTypePrimary), Name: "Primary"},
		{Value: uint64(PlaneTypeCursor), Name: "Cursor"},
	}}
	k.props[propFBID] = PropertyDescriptor{ID: propFBID, Name: "FB_ID", Type: PropertyTypeObject}
	k.props[propCRTCIDOnPlane] = PropertyDescriptor{ID: propCRTCIDOnPlane, Name: "CRTC_ID", Type: PropertyTypeObject}
	k.props[propSrcX] = PropertyDescriptor{ID: propSrcX, Name: "SRC_X", Type: PropertyTypeRange, Max: 1 << 32}
	k.props[propSrcY] = PropertyDescriptor{ID: propSrcY, Name: "SRC_Y", Type: PropertyTypeRange, Max: 1 << 32}
	k.props[propSrcW] = PropertyDescriptor{ID: propSrcW, Name: "SRC_W", Type: PropertyTypeRange, Max: 1 << 32}
	k.props[propSrcH] = PropertyDescriptor{ID: propSrcH, Name: "SRC_H", Type: PropertyTypeRange, Max: 1 << 32}
	k.props[propCrtcX] = PropertyDescriptor{ID: propCrtcX, Name: "CRTC_X", Type: PropertyTypeRange}
	k.props[propCrtcY] = PropertyDescriptor{ID: propCrtcY, Name: "CRTC_Y", Type: PropertyTypeRange}
	k.props[propCrtcW] = PropertyDescriptor{ID: propCrtcW, Name: "CRTC_W", Type: PropertyTypeRange}
	k.props[propCrtcH] = PropertyDescriptor{ID: propCrtcH, Name: "CRTC_H", Type: PropertyTypeRange}

	k.connectors = []rawConnector{{
		ID:         fixtureConnectorID,
		Connection: ConnectionConnected,
		EncoderIDs: []uint32{fixtureEncoderID},
		Modes:      []ModeInfo{fixtureModePreferred, fixtureModeAlternate},
		Props: []objectProperty{
			{ID: propCRTCIDOnConnector, Value: 0},
		},
	}}
	k.encoders = []rawEncoder{{
		ID:            fixtureEncoderID,
		PossibleCRTCs: 1 << 0,
	}}
	k.crtcs = []rawCRTC{
		{
			ID: fixtureCRTCID,
			Props: []objectProperty{
				{ID: propModeID, Value: 0},
				{ID: propActive, Value: 0},
			},
		},
		{
			ID: fixtureCRTCIDAlt,
			Props: []objectProperty{
				{ID: propModeID, Value: 0},
				{ID: propActive, Value: 0},
			},
		},
	}
	k.planes = []rawPlane{
		{
			ID:            fixturePrimaryID,
			PossibleCRTCs: 1 << 0,
			Formats:       []uint32{0x34325258}, // DRM_FORMAT_XRGB8888
			Props: []objectProperty{
				{ID: propType, Value: uint64(PlaneTypePrimary)},
				{ID: propFBID, Value: 0},
				{ID: propCRTCIDOnPlane, Value: 0},
				{ID: propSrcX, Value: 0}, {ID: propSrcY, Value: 0},
				{ID: propSrcW, Value: 0}, {ID: propSrcH, Value: 0},
				{ID: propCrtcX, Value: 0}, {ID: propCrtcY, Value: 0},
				{ID: propCrtcW, Value: 0}, {ID: propCrtcH, Value: 0},
			},
		},
		{
			ID:            fixtureOverlayID,
			PossibleCRTCs: 1 << 0,
			Formats:       []uint32{0x34325258},
			Props: []objectProperty{
				{ID: propType, Value: uint64(PlaneTypeOverlay)},
			},
		},
		{
			ID:            fixtureCursorID,
			PossibleCRTCs: 1 << 0,
			Formats:       []uint32{0x34325241}, // DRM_FORMAT_ARGB8888
			Props: []objectProperty{
				{ID: propType, Value: uint64(PlaneTypeCursor)},
			},
		},
	}

	return k
}

// newFixtureDevice builds a Device over newFixtureKernel(), discarding the
// logger output so tests stay quiet.
func newFixtureDevice() (*Device, *fakeKernel, error) {
	k := newFixtureKernel()
	dev, err := newDevice(k, deviceOptions{logger: discardLogger()})
	return dev, k, err
}
