package drmkms

import (
	"encoding/binary"
	"fmt"
)

// Configure resolves connectorID/encoderID/crtcID against the device's
// inventory, validates the topology, allocates a mode blob for mode and
// records the selected pipeline.
//
// mode must be byte-identical (ModeInfo.Equal) to one already present in
// the named connector's mode list. Failure at any step leaves the prior
// configuration, if any, intact; Configure is idempotent with respect to
// identical inputs except that a fresh blob is always allocated and the
// old one released.
func (d *Device) Configure(connectorID, encoderID, crtcID uint32, mode ModeInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	conn := d.findConnector(connectorID)
	if conn == nil {
		return fmt.Errorf("%w: connector %d", ErrUnknownObject, connectorID)
	}
	enc := d.findEncoder(encoderID)
	if enc == nil {
		return fmt.Errorf("%w: encoder %d", ErrUnknownObject, encoderID)
	}
	crtc := d.findCRTC(crtcID)
	if crtc == nil {
		return fmt.Errorf("%w: crtc %d", ErrUnknownObject, crtcID)
	}

	if !containsUint32(conn.EncoderIDs, encoderID) {
		return fmt.Errorf("%w: encoder %d not in connector %d's encoder list", ErrTopologyInvalid, encoderID, connectorID)
	}
	if enc.PossibleCRTCs&(1<<uint(crtc.Index)) == 0 {
		return fmt.Errorf("%w: crtc %d (index %d) not in encoder %d's possible-CRTCs mask", ErrTopologyInvalid, crtcID, crtc.Index, encoderID)
	}

	found := false
	for _, m := range conn.modes {
		if m.Equal(mode) {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %q on connector %d", ErrUnknownMode, mode.Name, connectorID)
	}

	blobID, err := d.k.createBlob(encodeModeInfo(mode))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBlobAllocation, err)
	}

	oldBlobID := d.modeBlobID
	d.modeBlobID = blobID
	if oldBlobID != 0 {
		if err := d.k.destroyBlob(oldBlobID); err != nil {
			d.logger.Warn("drmkms: destroy previous mode blob failed", "blob_id", oldBlobID, "err", err)
		}
	}

	d.selectedConnector = conn
	d.selectedEncoder = enc
	d.selectedCRTC = crtc
	selectedMode := mode
	d.selectedMode = &selectedMode
	d.configured = true

	d.logger.Info("drmkms: pipeline configured",
		"connector_id", connectorID,
		"encoder_id", encoderID,
		"crtc_id", crtcID,
		"mode", mode.Name,
		"blob_id", blobID)

	return nil
}

func (d *Device) findConnector(id uint32) *Connector {
	for i := range d.connectors {
		if d.connectors[i].ID == id {
			return &d.connectors[i]
		}
	}
	return nil
}

func (d *Device) findEncoder(id uint32) *Encoder {
	for i := range d.encoders {
		if d.encoders[i].ID == id {
			return &d.encoders[i]
		}
	}
	return nil
}

func (d *Device) findCRTC(id uint32) *CRTC {
	for i := range d.crtcs {
		if d.crtcs[i].ID == id {
			return &d.crtcs[i]
		}
	}
	return nil
}

func containsUint32(haystack []uint32, needle uint32) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// encodeModeInfo packs mode into the 68-byte on-wire drm_mode_modeinfo
// layout expected by MODE_CREATEPROPBLOB.
func encodeModeInfo(mode ModeInfo) []byte {
	buf := make([]byte, 68)
	binary.LittleEndian.PutUint32(buf[0:4], mode.Clock)
	binary.LittleEndian.PutUint16(buf[4:6], mode.Hdisplay)
	binary.LittleEndian.PutUint16(buf[6:8], mode.HsyncStart)
	binary.LittleEndian.PutUint16(buf[8:10], mode.HsyncEnd)
	binary.LittleEndian.PutUint16(buf[10:12], mode.Htotal)
	binary.LittleEndian.PutUint16(buf[12:14], mode.Hskew)
	binary.LittleEndian.PutUint16(buf[14:16], mode.Vdisplay)
	binary.LittleEndian.PutUint16(buf[16:18], mode.VsyncStart)
	binary.LittleEndian.PutUint16(buf[18:20], mode.VsyncEnd)
	binary.LittleEndian.PutUint16(buf[20:22], mode.Vtotal)
	binary.LittleEndian.PutUint16(buf[22:24], mode.Vscan)
	binary.LittleEndian.PutUint32(buf[24:28], mode.Vrefresh)
	binary.LittleEndian.PutUint32(buf[28:32], mode.Flags)
	binary.LittleEndian.PutUint32(buf[32:36], mode.Type)
	copy(buf[36:68], []byte(mode.Name))
	return buf
}
