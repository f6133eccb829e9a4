//go:build !linux

package drmkms

import "fmt"

// Stubs for non-Linux platforms: drmkms's kernel ioctls only exist on
// Linux.

type linuxKernel struct{}

func newLinuxKernel(path string) (*linuxKernel, error) {
	return nil, fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}

func newLinuxKernelFromFD(fd uintptr, owned bool) (*linuxKernel, error) {
	return nil, fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}

func (k *linuxKernel) setClientCap(capability, value uint64) error {
	return fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}

func (k *linuxKernel) getResourceIDs() (connectorIDs, encoderIDs, crtcIDs []uint32, err error) {
	return nil, nil, nil, fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}

func (k *linuxKernel) getPlaneIDs() ([]uint32, error) {
	return nil, fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}

func (k *linuxKernel) getConnector(id uint32) (rawConnector, error) {
	return rawConnector{}, fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}

func (k *linuxKernel) getEncoder(id uint32) (rawEncoder, error) {
	return rawEncoder{}, fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}

func (k *linuxKernel) getCRTC(id uint32) (rawCRTC, error) {
	return rawCRTC{}, fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}

func (k *linuxKernel) getPlane(id uint32) (rawPlane, error) {
	return rawPlane{}, fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}

func (k *linuxKernel) getObjectProperties(objID, objType uint32) ([]objectProperty, error) {
	return nil, fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}

func (k *linuxKernel) getPropertyDescriptor(id uint32) (PropertyDescriptor, error) {
	return PropertyDescriptor{}, fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}

func (k *linuxKernel) createBlob(data []byte) (uint32, error) {
	return 0, fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}

func (k *linuxKernel) destroyBlob(id uint32) error {
	return fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}

func (k *linuxKernel) atomicCommit(data atomicCommitData, flags uint32, userData uint64) error {
	return fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}

func (k *linuxKernel) close() error {
	return fmt.Errorf("drmkms: DRM ioctls only supported on Linux")
}
