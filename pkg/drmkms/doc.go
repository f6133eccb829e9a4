// Package drmkms is an atomic DRM/KMS modesetting core: it enumerates a
// DRM device's connectors, encoders, CRTCs and planes, lets a caller
// select a coherent output pipeline, and builds and submits atomic
// property-delta requests against it.
//
// Buffer allocation, rendering, event-loop integration and embedder
// wiring are the caller's responsibility — drmkms only talks to the
// kernel's MODE_* ioctls and never touches pixels.
package drmkms
