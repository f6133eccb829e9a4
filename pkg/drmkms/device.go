package drmkms

import (
	"fmt"
	"log/slog"
	"sync"
)

// Device owns a DRM primary node, its enumerated topology and the cached
// property bags of every object in it. It is the shared handle that
// pipeline configuration (pipeline.go) and atomic request building
// (request.go) operate against.
//
// A Device is safe for concurrent use: a single mutex serializes Request
// creation through commit-or-destroy (see request.go); pure reads
// (accessors, PropertyBag.Lookup) take no lock because the arena below is
// immutable once Open/OpenFD returns.
type Device struct {
	k      kernel
	logger *slog.Logger
	closed bool

	mu sync.Mutex

	connectors []Connector
	encoders   []Encoder
	crtcs      []CRTC
	planes     []Plane

	configured        bool
	selectedConnector *Connector
	selectedEncoder   *Encoder
	selectedCRTC      *CRTC
	selectedMode      *ModeInfo
	modeBlobID        uint32
}

// Option configures a Device at construction time.
type Option func(*deviceOptions)

type deviceOptions struct {
	logger *slog.Logger
}

// WithLogger attaches a structured logger. Without it, Device falls back to
// slog.Default() rather than ever logging to a nil *slog.Logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *deviceOptions) { o.logger = logger }
}

func resolveOptions(opts []Option) deviceOptions {
	o := deviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open opens the DRM node at path and builds its inventory in one pass. The
// returned Device owns the underlying file descriptor and closes it on
// Close.
func Open(path string, opts ...Option) (*Device, error) {
	k, err := newLinuxKernel(path)
	if err != nil {
		return nil, fmt.Errorf("drmkms: open %s: %w", path, err)
	}
	dev, err := newDevice(k, resolveOptions(opts))
	if err != nil {
		k.close()
		return nil, err
	}
	return dev, nil
}

// OpenFD adopts an already-open DRM file descriptor and builds its
// inventory in one pass. If owned is true, Close also closes fd; otherwise
// the caller remains responsible for it.
func OpenFD(fd uintptr, owned bool, opts ...Option) (*Device, error) {
	k, err := newLinuxKernelFromFD(fd, owned)
	if err != nil {
		return nil, fmt.Errorf("drmkms: adopt fd %d: %w", fd, err)
	}
	dev, err := newDevice(k, resolveOptions(opts))
	if err != nil {
		k.close()
		return nil, err
	}
	return dev, nil
}

// newDevice runs construction against any kernel backend — the real Linux
// one or, in tests, an in-memory fake. Any failure aborts construction and
// returns the underlying error; nothing partially built is retained by the
// caller (Open/OpenFD close the kernel backend on error).
func newDevice(k kernel, opts deviceOptions) (*Device, error) {
	// Step 1: capabilities. Both are mandatory: without universal planes
	// and atomic support there's no coherent plane/CRTC model to enumerate.
	if err := k.setClientCap(drmClientCapUniversalPlanes, 1); err != nil {
		return nil, fmt.Errorf("%w: universal planes: %v", ErrCapabilityUnsupported, err)
	}
	if err := k.setClientCap(drmClientCapAtomic, 1); err != nil {
		return nil, fmt.Errorf("%w: atomic: %v", ErrCapabilityUnsupported, err)
	}

	// Step 2: resource listings.
	connectorIDs, encoderIDs, crtcIDs, err := k.getResourceIDs()
	if err != nil {
		return nil, fmt.Errorf("drmkms: get resources: %w", err)
	}
	planeIDs, err := k.getPlaneIDs()
	if err != nil {
		return nil, fmt.Errorf("drmkms: get plane resources: %w", err)
	}

	// Step 3: per-object fetch + property bag.
	encoders := make([]Encoder, len(encoderIDs))
	for i, id := range encoderIDs {
		raw, err := k.getEncoder(id)
		if err != nil {
			return nil, fmt.Errorf("drmkms: get encoder %d: %w", id, err)
		}
		encoders[i] = Encoder{ID: raw.ID, PossibleCRTCs: raw.PossibleCRTCs}
	}

	crtcs := make([]CRTC, len(crtcIDs))
	for i, id := range crtcIDs {
		raw, err := k.getCRTC(id)
		if err != nil {
			return nil, fmt.Errorf("drmkms: get crtc %d: %w", id, err)
		}
		bag, err := fetchPropertyBag(k, raw.ID, drmModeObjectCRTC)
		if err != nil {
			return nil, fmt.Errorf("drmkms: crtc %d properties: %w", id, err)
		}
		crtcs[i] = CRTC{ID: raw.ID, Index: i, Properties: bag}
	}

	connectors := make([]Connector, len(connectorIDs))
	for i, id := range connectorIDs {
		raw, err := k.getConnector(id)
		if err != nil {
			return nil, fmt.Errorf("drmkms: get connector %d: %w", id, err)
		}
		bag, err := fetchPropertyBag(k, raw.ID, drmModeObjectConnector)
		if err != nil {
			return nil, fmt.Errorf("drmkms: connector %d properties: %w", id, err)
		}
		connectors[i] = Connector{
			ID:         raw.ID,
			Connection: raw.Connection,
			modes:      raw.Modes,
			EncoderIDs: raw.EncoderIDs,
			Properties: bag,
		}
	}

	planes := make([]Plane, len(planeIDs))
	for i, id := range planeIDs {
		raw, err := k.getPlane(id)
		if err != nil {
			return nil, fmt.Errorf("drmkms: get plane %d: %w", id, err)
		}
		bag, err := fetchPropertyBag(k, raw.ID, drmModeObjectPlane)
		if err != nil {
			return nil, fmt.Errorf("drmkms: plane %d properties: %w", id, err)
		}
		planeType := PlaneTypeOverlay
		if v, ok := bag.Value("type"); ok {
			planeType = PlaneType(v)
		}
		planes[i] = Plane{
			ID:            raw.ID,
			PossibleCRTCs: raw.PossibleCRTCs,
			Type:          planeType,
			Formats:       raw.Formats,
			Properties:    bag,
		}
	}

	opts.logger.Info("drmkms: device enumerated",
		"connectors", len(connectors),
		"encoders", len(encoders),
		"crtcs", len(crtcs),
		"planes", len(planes))

	return &Device{
		k:          k,
		logger:     opts.logger,
		connectors: connectors,
		encoders:   encoders,
		crtcs:      crtcs,
		planes:     planes,
	}, nil
}

func fetchPropertyBag(k kernel, objID, objType uint32) (PropertyBag, error) {
	props, err := k.getObjectProperties(objID, objType)
	if err != nil {
		return PropertyBag{}, err
	}
	descriptors := make([]PropertyDescriptor, len(props))
	for i, p := range props {
		d, err := k.getPropertyDescriptor(p.ID)
		if err != nil {
			return PropertyBag{}, fmt.Errorf("property %d: %w", p.ID, err)
		}
		descriptors[i] = d
	}
	return newPropertyBag(props, descriptors), nil
}

// Connectors returns every connector in kernel enumeration order. The
// returned slice shares the device's arena and must not be mutated.
func (d *Device) Connectors() []*Connector {
	out := make([]*Connector, len(d.connectors))
	for i := range d.connectors {
		out[i] = &d.connectors[i]
	}
	return out
}

// Encoders returns every encoder in kernel enumeration order.
func (d *Device) Encoders() []*Encoder {
	out := make([]*Encoder, len(d.encoders))
	for i := range d.encoders {
		out[i] = &d.encoders[i]
	}
	return out
}

// CRTCs returns every CRTC in kernel enumeration order.
func (d *Device) CRTCs() []*CRTC {
	out := make([]*CRTC, len(d.crtcs))
	for i := range d.crtcs {
		out[i] = &d.crtcs[i]
	}
	return out
}

// Planes returns every plane in kernel enumeration order.
func (d *Device) Planes() []*Plane {
	out := make([]*Plane, len(d.planes))
	for i := range d.planes {
		out[i] = &d.planes[i]
	}
	return out
}

// Modes returns c's supported modes, in kernel enumeration order.
func (c *Connector) Modes() []ModeInfo {
	return c.modes
}

// Configured reports whether Configure has succeeded at least once.
func (d *Device) Configured() bool {
	return d.configured
}

// SelectedPipeline returns the currently configured connector, encoder,
// CRTC and mode. ok is false if Configure has not yet succeeded.
func (d *Device) SelectedPipeline() (conn *Connector, enc *Encoder, crtc *CRTC, mode *ModeInfo, ok bool) {
	if !d.configured {
		return nil, nil, nil, nil, false
	}
	return d.selectedConnector, d.selectedEncoder, d.selectedCRTC, d.selectedMode, true
}

// ModeBlobID returns the kernel blob ID holding the currently-selected
// mode. It is zero until the first successful Configure.
func (d *Device) ModeBlobID() uint32 {
	return d.modeBlobID
}

// Close releases every property bag, destroys the mode blob if any, and
// closes the underlying fd if this Device owns it.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	if d.modeBlobID != 0 {
		if err := d.k.destroyBlob(d.modeBlobID); err != nil {
			d.logger.Warn("drmkms: destroy mode blob failed", "blob_id", d.modeBlobID, "err", err)
		}
		d.modeBlobID = 0
	}
	d.connectors = nil
	d.encoders = nil
	d.crtcs = nil
	d.planes = nil

	return d.k.close()
}
