package drmkms

// ConnectionStatus mirrors the kernel's drm_mode_get_connector.connection
// field.
type ConnectionStatus uint32

const (
	ConnectionConnected    ConnectionStatus = 1
	ConnectionDisconnected ConnectionStatus = 2
	ConnectionUnknown      ConnectionStatus = 3
)

func (s ConnectionStatus) String() string {
	switch s {
	case ConnectionConnected:
		return "connected"
	case ConnectionDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// PlaneType is the value of a plane's "type" property, discovered via its
// property bag.
type PlaneType uint64

const (
	PlaneTypeOverlay PlaneType = 0
	PlaneTypePrimary PlaneType = 1
	PlaneTypeCursor  PlaneType = 2
)

func (t PlaneType) String() string {
	switch t {
	case PlaneTypePrimary:
		return "primary"
	case PlaneTypeCursor:
		return "cursor"
	default:
		return "overlay"
	}
}

// PropertyType is the value-type tag carried by a property descriptor
// (DRM_MODE_PROP_* flag bits from drm_mode.h).
type PropertyType uint32

const (
	PropertyTypeRange     PropertyType = 1 << 1
	PropertyTypeImmutable PropertyType = 1 << 2
	PropertyTypeEnum      PropertyType = 1 << 3
	PropertyTypeBlob      PropertyType = 1 << 4
	PropertyTypeBitmask   PropertyType = 1 << 5
	// PropertyTypeObject approximates the kernel's extended-type object
	// properties (e.g. CRTC_ID on a connector); the core never needs to
	// decode the full extended-type field since property lookups go by
	// name, not by type.
	PropertyTypeObject PropertyType = 1 << 6
)

// EnumValue is one named value of an enum-typed property.
type EnumValue struct {
	Value uint64
	Name  string
}

// PropertyDescriptor describes a property kernel-wide: its ID, human name,
// value type, and legal range or enum set. Fetched once per property ID
// during inventory construction and cached for the device's lifetime.
type PropertyDescriptor struct {
	ID         uint32
	Name       string
	Type       PropertyType
	Min, Max   uint64
	EnumValues []EnumValue
}

// PropertyBag pairs an object's current property values with their
// descriptors, index-aligned: props[i].ID == Descriptors[i].ID always.
// Name lookup is a linear scan of Descriptors, which is fine given the
// small (tens) property count per object; a name->ID map would be an
// acceptable refinement but isn't needed at this scale.
type PropertyBag struct {
	props       []objectProperty
	Descriptors []PropertyDescriptor
}

// Lookup returns the property ID whose descriptor name exactly (case
// sensitive) matches name, and whether it was found.
func (b PropertyBag) Lookup(name string) (id uint32, ok bool) {
	for _, d := range b.Descriptors {
		if d.Name == name {
			return d.ID, true
		}
	}
	return 0, false
}

// Value returns the object's current value for the named property, and
// whether the property exists on this object.
func (b PropertyBag) Value(name string) (value uint64, ok bool) {
	for i, d := range b.Descriptors {
		if d.Name == name {
			return b.props[i].Value, true
		}
	}
	return 0, false
}

// Len returns the number of properties in the bag. Present so invariant
// tests can assert len(props) == len(Descriptors) without reaching into
// the unexported field.
func (b PropertyBag) Len() int {
	return len(b.props)
}

func newPropertyBag(props []objectProperty, descriptors []PropertyDescriptor) PropertyBag {
	return PropertyBag{props: props, Descriptors: descriptors}
}

// ModeInfo is a full kernel mode descriptor (drm_mode_modeinfo, 68 bytes on
// the wire). Configure requires the caller's mode to be byte-identical
// (field by field, via Equal) to one already present in the connector's
// mode list.
type ModeInfo struct {
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
	Name       string // decoded from the kernel's 32-byte NUL-padded name
}

// Equal reports whether m and other describe the same mode, field by
// field. Configure requires this byte-identical match between its mode
// argument and a connector's advertised modes.
func (m ModeInfo) Equal(other ModeInfo) bool {
	return m == other
}

// Connector represents a physical output port.
type Connector struct {
	ID         uint32
	Connection ConnectionStatus
	modes      []ModeInfo
	EncoderIDs []uint32
	Properties PropertyBag
}

// Encoder translates CRTC output into a signal for one or more connectors.
// Unlike Connector/CRTC/Plane, encoders carry no generic property bag in
// the KMS object model — only an ID and a possible-CRTCs bitmask.
type Encoder struct {
	ID            uint32
	PossibleCRTCs uint32 // bitmask, bit N set means CRTCs[N] can be driven
}

// CRTC is a scanout engine.
type CRTC struct {
	ID         uint32
	Index      int // position in the resource list; used for bitmask arithmetic
	Properties PropertyBag
}

// Plane is a composition layer feeding a CRTC.
type Plane struct {
	ID            uint32
	PossibleCRTCs uint32
	Type          PlaneType
	Formats       []uint32
	Properties    PropertyBag
}
