package drmkms

import (
	"context"
	"fmt"
	"sync"
)

// Commit flag bits, passed straight through to DRM_IOCTL_MODE_ATOMIC.
// Values are the kernel's own DRM_MODE_PAGE_FLIP_EVENT / DRM_MODE_ATOMIC_*
// constants.
const (
	FlagPageFlipEvent uint32 = 0x0001
	FlagTestOnly      uint32 = 0x0100
	FlagNonblock      uint32 = 0x0200
	FlagAllowModeset  uint32 = 0x0400
)

// propSetting is one pending (object, property, value) triple.
type propSetting struct {
	ObjectID   uint32
	PropertyID uint32
	Value      uint64
}

// Request is a pending, not-yet-submitted atomic commit: a set of property
// deltas against a single Device. Its lifecycle runs Draft ->
// Submitted/Destroyed, with Destroyed terminal either way.
//
// Creating a Request locks its Device for the Request's entire lifetime;
// Commit and Destroy release that lock exactly once, however they're
// reached, which is what makes "at most one live Request per device" a
// consequence of lock ownership rather than a separately-checked
// invariant.
type Request struct {
	dev      *Device
	settings []propSetting
	unlock   sync.Once
	done     bool
}

// NewRequest creates a pending atomic request bound to d and locks d for
// the request's lifetime.
func (d *Device) NewRequest() (*Request, error) {
	d.mu.Lock()
	return &Request{dev: d}, nil
}

// PutConnectorProperty appends a (selected-connector, name, value) setting.
// It requires Configure to have already succeeded.
func (r *Request) PutConnectorProperty(name string, value uint64) error {
	if r.done {
		return ErrRequestDone
	}
	if !r.dev.configured {
		return ErrNotConfigured
	}
	return r.putNamed(r.dev.selectedConnector.ID, r.dev.selectedConnector.Properties, name, value)
}

// PutCRTCProperty appends a (selected-CRTC, name, value) setting. It
// requires Configure to have already succeeded.
func (r *Request) PutCRTCProperty(name string, value uint64) error {
	if r.done {
		return ErrRequestDone
	}
	if !r.dev.configured {
		return ErrNotConfigured
	}
	return r.putNamed(r.dev.selectedCRTC.ID, r.dev.selectedCRTC.Properties, name, value)
}

// PutPlaneProperty appends a (planeID, name, value) setting. Unlike the
// connector/CRTC variants, the plane is addressed explicitly and Configure
// need not have succeeded — a plane property can be staged independently
// of the selected output pipeline.
func (r *Request) PutPlaneProperty(planeID uint32, name string, value uint64) error {
	if r.done {
		return ErrRequestDone
	}
	plane := r.dev.findPlane(planeID)
	if plane == nil {
		return fmt.Errorf("%w: plane %d", ErrUnknownObject, planeID)
	}
	return r.putNamed(plane.ID, plane.Properties, name, value)
}

func (r *Request) putNamed(objectID uint32, bag PropertyBag, name string, value uint64) error {
	id, ok := bag.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrPropertyNotFound, name)
	}
	r.settings = append(r.settings, propSetting{ObjectID: objectID, PropertyID: id, Value: value})
	return nil
}

// PutModesetProperties appends the minimum set of settings needed to
// activate the selected pipeline (CRTC_ID on the connector; MODE_ID and
// ACTIVE on the CRTC) and ORs FlagAllowModeset into *flags. It requires
// Configure to have already succeeded.
func (r *Request) PutModesetProperties(flags *uint32) error {
	if r.done {
		return ErrRequestDone
	}
	if !r.dev.configured {
		return ErrNotConfigured
	}
	if err := r.PutConnectorProperty("CRTC_ID", uint64(r.dev.selectedCRTC.ID)); err != nil {
		return err
	}
	if err := r.PutCRTCProperty("MODE_ID", uint64(r.dev.modeBlobID)); err != nil {
		return err
	}
	if err := r.PutCRTCProperty("ACTIVE", 1); err != nil {
		return err
	}
	*flags |= FlagAllowModeset
	return nil
}

// Commit submits the pending settings to the kernel via MODE_ATOMIC with
// the given flags and userData. userData is opaque to drmkms: if flags
// includes FlagPageFlipEvent, the kernel will deliver it back to the
// embedder's event handler when the flip completes — drmkms defines this
// contract but never dispatches the event itself.
//
// Commit consumes the Request regardless of outcome: success or failure
// both deinitialize the pending set and unlock the Device. A failed
// commit returns the kernel's error verbatim and leaves no partial state
// on the Device, since atomic commits either fully apply or have no
// effect.
func (r *Request) Commit(ctx context.Context, flags uint32, userData uint64) error {
	if r.done {
		return ErrRequestDone
	}
	defer r.finish()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data := flattenSettings(r.settings)
	err := r.dev.k.atomicCommit(data, flags, userData)
	if err != nil {
		r.dev.logger.Warn("drmkms: atomic commit failed", "flags", flags, "err", err)
		return fmt.Errorf("drmkms: atomic commit: %w", err)
	}

	if flags&(FlagAllowModeset|FlagTestOnly) == FlagAllowModeset {
		// A real (non-TEST_ONLY) modeset commit is the only place the
		// device's active-mode state changes.
		r.dev.logger.Info("drmkms: atomic commit applied modeset", "flags", flags)
	} else {
		r.dev.logger.Debug("drmkms: atomic commit applied", "flags", flags)
	}
	return nil
}

// Destroy discards the pending settings and releases the Device lock. It
// is safe to call on a Request that has already been committed or
// destroyed — the second call is a no-op, not a double-unlock.
func (r *Request) Destroy() {
	r.finish()
}

func (r *Request) finish() {
	r.unlock.Do(func() {
		r.done = true
		r.settings = nil
		r.dev.mu.Unlock()
	})
}

func (d *Device) findPlane(id uint32) *Plane {
	for i := range d.planes {
		if d.planes[i].ID == id {
			return &d.planes[i]
		}
	}
	return nil
}

// flattenSettings groups pending settings by object ID, preserving order of
// first appearance, into the shape DRM_IOCTL_MODE_ATOMIC expects. Duplicate
// property names appended earlier are not deduplicated here: the kernel
// applies the last value for a repeated (object, property) pair, so eager
// dedup here would just be redundant work.
func flattenSettings(settings []propSetting) atomicCommitData {
	var order []uint32
	grouped := make(map[uint32][]propSetting)
	for _, s := range settings {
		if _, ok := grouped[s.ObjectID]; !ok {
			order = append(order, s.ObjectID)
		}
		grouped[s.ObjectID] = append(grouped[s.ObjectID], s)
	}

	var data atomicCommitData
	for _, objID := range order {
		group := grouped[objID]
		data.objs = append(data.objs, objID)
		data.countProps = append(data.countProps, uint32(len(group)))
		for _, s := range group {
			data.propIDs = append(data.propIDs, s.PropertyID)
			data.propValues = append(data.propValues, s.Value)
		}
	}
	return data
}
