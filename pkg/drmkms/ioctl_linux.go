//go:build linux

package drmkms

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DRM ioctl numbers: _IOWR('d', nr, size) = 0xC0000000 | size<<16 | 'd'<<8 |
// nr (and _IOW for SET_CLIENT_CAP, dir bit 0x40000000). Each nr/size pair
// matches the kernel's drm_mode.h definitions.
const (
	ioctlSetClientCap   = 0x4010640d // struct drm_set_client_cap, 16 bytes
	ioctlGetResources   = 0xc04064a0 // struct drm_mode_card_res, 64 bytes
	ioctlGetPlaneRes    = 0xc01064b5 // struct drm_mode_get_plane_res, 16 bytes
	ioctlGetConnector   = 0xc05064a7 // struct drm_mode_get_connector, 80 bytes
	ioctlGetEncoder     = 0xc01464a6 // struct drm_mode_get_encoder, 20 bytes
	ioctlGetCrtc        = 0xc06864a1 // struct drm_mode_crtc, 104 bytes
	ioctlGetPlane       = 0xc02064b6 // struct drm_mode_get_plane, 32 bytes
	ioctlObjGetProps    = 0xc01c64b9 // struct drm_mode_obj_get_properties, 28 bytes
	ioctlGetProperty    = 0xc04064aa // struct drm_mode_get_property, 64 bytes
	ioctlCreatePropBlob = 0xc01064bd // struct drm_mode_create_blob, 16 bytes
	ioctlDestroyPropBlob = 0xc00464be // struct drm_mode_destroy_blob, 4 bytes
	ioctlAtomic         = 0xc03864bc // struct drm_mode_atomic, 56 bytes
)

type drmSetClientCap struct {
	Capability uint64
	Value      uint64
}

type drmModeCardRes struct {
	FbIDPtr         uint64
	CrtcIDPtr       uint64
	ConnectorIDPtr  uint64
	EncoderIDPtr    uint64
	CountFbs        uint32
	CountCrtcs      uint32
	CountConnectors uint32
	CountEncoders   uint32
	MinWidth        uint32
	MaxWidth        uint32
	MinHeight       uint32
	MaxHeight       uint32
}

type drmModeGetPlaneRes struct {
	PlaneIDPtr  uint64
	CountPlanes uint32
	pad         uint32
}

type drmModeModeInfoWire struct {
	Clock      uint32
	Hdisplay   uint16
	HsyncStart uint16
	HsyncEnd   uint16
	Htotal     uint16
	Hskew      uint16
	Vdisplay   uint16
	VsyncStart uint16
	VsyncEnd   uint16
	Vtotal     uint16
	Vscan      uint16
	Vrefresh   uint32
	Flags      uint32
	Type       uint32
	Name       [32]byte
}

type drmModeGetConnectorWire struct {
	EncodersPtr     uint64
	ModesPtr        uint64
	PropsPtr        uint64
	PropValuesPtr   uint64
	CountModes      uint32
	CountProps      uint32
	CountEncoders   uint32
	EncoderID       uint32
	ConnectorID     uint32
	ConnectorType   uint32
	ConnectorTypeID uint32
	Connection      uint32
	MmWidth         uint32
	MmHeight        uint32
	Subpixel        uint32
	Pad             uint32
}

type drmModeGetEncoderWire struct {
	EncoderID      uint32
	EncoderType    uint32
	CrtcID         uint32
	PossibleCrtcs  uint32
	PossibleClones uint32
}

type drmModeCrtcWire struct {
	SetConnectorsPtr uint64
	CountConnectors  uint32
	CrtcID           uint32
	FbID             uint32
	X                uint32
	Y                uint32
	GammaSize        uint32
	ModeValid        uint32
	Mode             drmModeModeInfoWire
}

type drmModeGetPlaneWire struct {
	PlaneID          uint32
	CrtcID           uint32
	FbID             uint32
	PossibleCrtcs    uint32
	GammaSize        uint32
	CountFormatTypes uint32
	FormatTypePtr    uint64
}

type drmModeObjGetPropertiesWire struct {
	PropsPtr      uint64
	PropValuesPtr uint64
	CountProps    uint32
	ObjID         uint32
	ObjType       uint32
}

type drmModeGetPropertyWire struct {
	ValuesPtr      uint64
	EnumBlobPtr    uint64
	PropID         uint32
	Flags          uint32
	Name           [32]byte
	CountValues    uint32
	CountEnumBlobs uint32
}

type drmModePropertyEnumWire struct {
	Value uint64
	Name  [32]byte
}

type drmModeCreateBlobWire struct {
	Data   uint64
	Length uint32
	BlobID uint32
}

type drmModeDestroyBlobWire struct {
	BlobID uint32
}

type drmModeAtomicWire struct {
	Flags          uint32
	CountObjs      uint32
	ObjsPtr        uint64
	CountPropsPtr  uint64
	PropsPtr       uint64
	PropValuesPtr  uint64
	Reserved       uint64
	UserData       uint64
}

// linuxKernel implements kernel over a real /dev/dri node via raw ioctls,
// using unix.Syscall(unix.SYS_IOCTL, ...) directly since there is no
// higher-level Go wrapper for the DRM mode-setting ioctl family.
type linuxKernel struct {
	f     *os.File
	owned bool
}

func newLinuxKernel(path string) (*linuxKernel, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &linuxKernel{f: f, owned: true}, nil
}

func newLinuxKernelFromFD(fd uintptr, owned bool) (*linuxKernel, error) {
	f := os.NewFile(fd, "drm")
	if f == nil {
		return nil, fmt.Errorf("invalid fd %d", fd)
	}
	return &linuxKernel{f: f, owned: owned}, nil
}

func (k *linuxKernel) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, k.f.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (k *linuxKernel) setClientCap(capability, value uint64) error {
	req := drmSetClientCap{Capability: capability, Value: value}
	return k.ioctl(ioctlSetClientCap, unsafe.Pointer(&req))
}

func (k *linuxKernel) getResourceIDs() (connectorIDs, encoderIDs, crtcIDs []uint32, err error) {
	var res drmModeCardRes
	if err := k.ioctl(ioctlGetResources, unsafe.Pointer(&res)); err != nil {
		return nil, nil, nil, fmt.Errorf("GETRESOURCES (count): %w", err)
	}

	connectorIDs = make([]uint32, res.CountConnectors)
	encoderIDs = make([]uint32, res.CountEncoders)
	crtcIDs = make([]uint32, res.CountCrtcs)
	fbIDs := make([]uint32, res.CountFbs)

	res2 := drmModeCardRes{
		CountFbs:        res.CountFbs,
		CountCrtcs:      res.CountCrtcs,
		CountConnectors: res.CountConnectors,
		CountEncoders:   res.CountEncoders,
	}
	if len(connectorIDs) > 0 {
		res2.ConnectorIDPtr = uint64(uintptr(unsafe.Pointer(&connectorIDs[0])))
	}
	if len(encoderIDs) > 0 {
		res2.EncoderIDPtr = uint64(uintptr(unsafe.Pointer(&encoderIDs[0])))
	}
	if len(crtcIDs) > 0 {
		res2.CrtcIDPtr = uint64(uintptr(unsafe.Pointer(&crtcIDs[0])))
	}
	if len(fbIDs) > 0 {
		res2.FbIDPtr = uint64(uintptr(unsafe.Pointer(&fbIDs[0])))
	}
	if err := k.ioctl(ioctlGetResources, unsafe.Pointer(&res2)); err != nil {
		return nil, nil, nil, fmt.Errorf("GETRESOURCES (fill): %w", err)
	}
	return connectorIDs, encoderIDs, crtcIDs, nil
}

func (k *linuxKernel) getPlaneIDs() ([]uint32, error) {
	var res drmModeGetPlaneRes
	if err := k.ioctl(ioctlGetPlaneRes, unsafe.Pointer(&res)); err != nil {
		return nil, fmt.Errorf("GETPLANERESOURCES (count): %w", err)
	}
	planeIDs := make([]uint32, res.CountPlanes)
	if len(planeIDs) == 0 {
		return planeIDs, nil
	}
	res2 := drmModeGetPlaneRes{
		CountPlanes: res.CountPlanes,
		PlaneIDPtr:  uint64(uintptr(unsafe.Pointer(&planeIDs[0]))),
	}
	if err := k.ioctl(ioctlGetPlaneRes, unsafe.Pointer(&res2)); err != nil {
		return nil, fmt.Errorf("GETPLANERESOURCES (fill): %w", err)
	}
	return planeIDs, nil
}

func (k *linuxKernel) getConnector(id uint32) (rawConnector, error) {
	conn := drmModeGetConnectorWire{ConnectorID: id}
	if err := k.ioctl(ioctlGetConnector, unsafe.Pointer(&conn)); err != nil {
		return rawConnector{}, fmt.Errorf("GETCONNECTOR(%d) (count): %w", id, err)
	}

	encoderIDs := make([]uint32, conn.CountEncoders)
	modes := make([]drmModeModeInfoWire, conn.CountModes)
	conn2 := drmModeGetConnectorWire{
		ConnectorID:   id,
		CountEncoders: conn.CountEncoders,
		CountModes:    conn.CountModes,
	}
	if len(encoderIDs) > 0 {
		conn2.EncodersPtr = uint64(uintptr(unsafe.Pointer(&encoderIDs[0])))
	}
	if len(modes) > 0 {
		conn2.ModesPtr = uint64(uintptr(unsafe.Pointer(&modes[0])))
	}
	if err := k.ioctl(ioctlGetConnector, unsafe.Pointer(&conn2)); err != nil {
		return rawConnector{}, fmt.Errorf("GETCONNECTOR(%d) (fill): %w", id, err)
	}

	out := rawConnector{
		ID:         conn2.ConnectorID,
		Connection: ConnectionStatus(conn2.Connection),
		EncoderIDs: encoderIDs,
		Modes:      make([]ModeInfo, len(modes)),
	}
	for i, m := range modes {
		out.Modes[i] = wireModeToModeInfo(m)
	}
	return out, nil
}

func (k *linuxKernel) getEncoder(id uint32) (rawEncoder, error) {
	enc := drmModeGetEncoderWire{EncoderID: id}
	if err := k.ioctl(ioctlGetEncoder, unsafe.Pointer(&enc)); err != nil {
		return rawEncoder{}, fmt.Errorf("GETENCODER(%d): %w", id, err)
	}
	return rawEncoder{ID: enc.EncoderID, PossibleCRTCs: enc.PossibleCrtcs}, nil
}

func (k *linuxKernel) getCRTC(id uint32) (rawCRTC, error) {
	crtc := drmModeCrtcWire{CrtcID: id}
	if err := k.ioctl(ioctlGetCrtc, unsafe.Pointer(&crtc)); err != nil {
		return rawCRTC{}, fmt.Errorf("GETCRTC(%d): %w", id, err)
	}
	return rawCRTC{ID: crtc.CrtcID}, nil
}

func (k *linuxKernel) getPlane(id uint32) (rawPlane, error) {
	plane := drmModeGetPlaneWire{PlaneID: id}
	if err := k.ioctl(ioctlGetPlane, unsafe.Pointer(&plane)); err != nil {
		return rawPlane{}, fmt.Errorf("GETPLANE(%d) (count): %w", id, err)
	}
	formats := make([]uint32, plane.CountFormatTypes)
	if len(formats) > 0 {
		plane2 := plane
		plane2.FormatTypePtr = uint64(uintptr(unsafe.Pointer(&formats[0])))
		if err := k.ioctl(ioctlGetPlane, unsafe.Pointer(&plane2)); err != nil {
			return rawPlane{}, fmt.Errorf("GETPLANE(%d) (fill): %w", id, err)
		}
	}
	return rawPlane{
		ID:            plane.PlaneID,
		PossibleCRTCs: plane.PossibleCrtcs,
		Formats:       formats,
	}, nil
}

func (k *linuxKernel) getObjectProperties(objID, objType uint32) ([]objectProperty, error) {
	req := drmModeObjGetPropertiesWire{ObjID: objID, ObjType: objType}
	if err := k.ioctl(ioctlObjGetProps, unsafe.Pointer(&req)); err != nil {
		return nil, fmt.Errorf("OBJ_GETPROPERTIES(%d) (count): %w", objID, err)
	}
	if req.CountProps == 0 {
		return nil, nil
	}
	propIDs := make([]uint32, req.CountProps)
	propValues := make([]uint64, req.CountProps)
	req2 := drmModeObjGetPropertiesWire{
		ObjID:         objID,
		ObjType:       objType,
		CountProps:    req.CountProps,
		PropsPtr:      uint64(uintptr(unsafe.Pointer(&propIDs[0]))),
		PropValuesPtr: uint64(uintptr(unsafe.Pointer(&propValues[0]))),
	}
	if err := k.ioctl(ioctlObjGetProps, unsafe.Pointer(&req2)); err != nil {
		return nil, fmt.Errorf("OBJ_GETPROPERTIES(%d) (fill): %w", objID, err)
	}
	out := make([]objectProperty, req.CountProps)
	for i := range out {
		out[i] = objectProperty{ID: propIDs[i], Value: propValues[i]}
	}
	return out, nil
}

func (k *linuxKernel) getPropertyDescriptor(id uint32) (PropertyDescriptor, error) {
	prop := drmModeGetPropertyWire{PropID: id}
	if err := k.ioctl(ioctlGetProperty, unsafe.Pointer(&prop)); err != nil {
		return PropertyDescriptor{}, fmt.Errorf("GETPROPERTY(%d) (count): %w", id, err)
	}

	desc := PropertyDescriptor{
		ID:   prop.PropID,
		Name: cStringFromBytes(prop.Name[:]),
		Type: PropertyType(prop.Flags),
	}

	if desc.Type&PropertyTypeRange != 0 && prop.CountValues > 0 {
		values := make([]uint64, prop.CountValues)
		prop2 := prop
		prop2.ValuesPtr = uint64(uintptr(unsafe.Pointer(&values[0])))
		if err := k.ioctl(ioctlGetProperty, unsafe.Pointer(&prop2)); err != nil {
			return PropertyDescriptor{}, fmt.Errorf("GETPROPERTY(%d) (range): %w", id, err)
		}
		if len(values) >= 2 {
			desc.Min, desc.Max = values[0], values[1]
		}
	}

	if desc.Type&(PropertyTypeEnum|PropertyTypeBitmask) != 0 && prop.CountEnumBlobs > 0 {
		enums := make([]drmModePropertyEnumWire, prop.CountEnumBlobs)
		prop2 := prop
		prop2.EnumBlobPtr = uint64(uintptr(unsafe.Pointer(&enums[0])))
		if err := k.ioctl(ioctlGetProperty, unsafe.Pointer(&prop2)); err != nil {
			return PropertyDescriptor{}, fmt.Errorf("GETPROPERTY(%d) (enum): %w", id, err)
		}
		desc.EnumValues = make([]EnumValue, len(enums))
		for i, e := range enums {
			desc.EnumValues[i] = EnumValue{Value: e.Value, Name: cStringFromBytes(e.Name[:])}
		}
	}

	return desc, nil
}

func (k *linuxKernel) createBlob(data []byte) (uint32, error) {
	req := drmModeCreateBlobWire{Length: uint32(len(data))}
	if len(data) > 0 {
		req.Data = uint64(uintptr(unsafe.Pointer(&data[0])))
	}
	if err := k.ioctl(ioctlCreatePropBlob, unsafe.Pointer(&req)); err != nil {
		return 0, fmt.Errorf("CREATEPROPBLOB: %w", err)
	}
	return req.BlobID, nil
}

func (k *linuxKernel) destroyBlob(id uint32) error {
	req := drmModeDestroyBlobWire{BlobID: id}
	if err := k.ioctl(ioctlDestroyPropBlob, unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("DESTROYPROPBLOB(%d): %w", id, err)
	}
	return nil
}

func (k *linuxKernel) atomicCommit(data atomicCommitData, flags uint32, userData uint64) error {
	req := drmModeAtomicWire{
		Flags:     flags,
		CountObjs: uint32(len(data.objs)),
		UserData:  userData,
	}
	if len(data.objs) > 0 {
		req.ObjsPtr = uint64(uintptr(unsafe.Pointer(&data.objs[0])))
		req.CountPropsPtr = uint64(uintptr(unsafe.Pointer(&data.countProps[0])))
	}
	if len(data.propIDs) > 0 {
		req.PropsPtr = uint64(uintptr(unsafe.Pointer(&data.propIDs[0])))
		req.PropValuesPtr = uint64(uintptr(unsafe.Pointer(&data.propValues[0])))
	}
	if err := k.ioctl(ioctlAtomic, unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("ATOMIC: %w", err)
	}
	return nil
}

func (k *linuxKernel) close() error {
	if !k.owned {
		return nil
	}
	return k.f.Close()
}

func wireModeToModeInfo(m drmModeModeInfoWire) ModeInfo {
	return ModeInfo{
		Clock:      m.Clock,
		Hdisplay:   m.Hdisplay,
		HsyncStart: m.HsyncStart,
		HsyncEnd:   m.HsyncEnd,
		Htotal:     m.Htotal,
		Hskew:      m.Hskew,
		Vdisplay:   m.Vdisplay,
		VsyncStart: m.VsyncStart,
		VsyncEnd:   m.VsyncEnd,
		Vtotal:     m.Vtotal,
		Vscan:      m.Vscan,
		Vrefresh:   m.Vrefresh,
		Flags:      m.Flags,
		Type:       m.Type,
		Name:       cStringFromBytes(m.Name[:]),
	}
}

func cStringFromBytes(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
