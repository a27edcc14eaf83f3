// Package graphics implements image data, 2D graphics surfaces, 3D contexts
// and views as registry resources.
//
// Pixel buffers are 4 bytes per pixel with rows packed at a stride of 4*width.
// Operations that touch two resources never hold both leases at once.
package graphics

import (
	"go.uber.org/zap"

	"github.com/wippyai/plugin-runtime/errors"
	"github.com/wippyai/plugin-runtime/resource"
)

const (
	bytesPerPixel = 4

	// MaxDimension bounds image and surface width and height.
	MaxDimension = 16384
)

// NativeFormat is the pixel layout preferred by the host.
const NativeFormat = resource.FormatBGRAPremul

// ImageDesc describes an image data buffer.
type ImageDesc struct {
	Format resource.ImageFormat
	Width  int32
	Height int32
	Stride int32
}

// Service creates and manipulates graphics resources in a registry.
type Service struct {
	reg *resource.Registry
	log *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New creates a graphics service over reg.
func New(reg *resource.Registry, opts ...Option) *Service {
	s := &Service{reg: reg}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// IsFormatSupported reports whether f is a known pixel layout.
func IsFormatSupported(f resource.ImageFormat) bool {
	return f == resource.FormatBGRAPremul || f == resource.FormatRGBAPremul
}

func checkSize(w, h int32) error {
	if w <= 0 || h <= 0 || w > MaxDimension || h > MaxDimension {
		return errors.New(errors.PhaseAllocate, errors.KindInvalidInput).
			Value([2]int32{w, h}).
			Detail("size %dx%d out of range", w, h).
			Build()
	}
	return nil
}

// CreateImageData allocates a w by h image in format. Buffers always start
// zeroed; zero is accepted for interface parity.
func (s *Service) CreateImageData(format resource.ImageFormat, w, h int32, zero bool) (resource.Handle, error) {
	if !IsFormatSupported(format) {
		return resource.InvalidHandle, errors.New(errors.PhaseAllocate, errors.KindUnsupported).
			Value(format).
			Detail("image format %d", format).
			Build()
	}
	if err := checkSize(w, h); err != nil {
		return resource.InvalidHandle, err
	}

	hd := s.reg.Allocate(resource.TypeImageData)
	img, ok := resource.Acquire[*resource.ImageData](s.reg, hd)
	if !ok {
		return resource.InvalidHandle, errors.Closed(errors.PhaseAllocate, "registry")
	}
	defer img.Release()

	d := img.Value()
	d.Format = format
	d.Width = w
	d.Height = h
	d.Stride = w * bytesPerPixel
	d.Data = make([]byte, int(d.Stride)*int(h))

	s.log.Debug("image data created",
		zap.Int32("handle", int32(hd)),
		zap.Int32("width", w),
		zap.Int32("height", h),
		zap.Bool("zero", zero))
	return hd, nil
}

// IsImageData reports whether h is a live image data.
func (s *Service) IsImageData(h resource.Handle) bool {
	return s.reg.GetType(h) == resource.TypeImageData
}

// Describe returns the layout of image h.
func (s *Service) Describe(h resource.Handle) (ImageDesc, bool) {
	img, ok := resource.Acquire[*resource.ImageData](s.reg, h)
	if !ok {
		return ImageDesc{}, false
	}
	defer img.Release()
	d := img.Value()
	return ImageDesc{Format: d.Format, Width: d.Width, Height: d.Height, Stride: d.Stride}, true
}

// Map returns a copy of the pixels of image h.
func (s *Service) Map(h resource.Handle) ([]byte, bool) {
	img, ok := resource.Acquire[*resource.ImageData](s.reg, h)
	if !ok {
		return nil, false
	}
	defer img.Release()
	return append([]byte(nil), img.Value().Data...), true
}

// Store copies pix into image h starting at byte offset off.
func (s *Service) Store(h resource.Handle, off int, pix []byte) error {
	img, ok := resource.Acquire[*resource.ImageData](s.reg, h)
	if !ok {
		return errors.InvalidHandle(errors.PhaseAcquire, int32(h))
	}
	defer img.Release()

	d := img.Value()
	if off < 0 || off > len(d.Data) || len(pix) > len(d.Data)-off {
		return errors.New(errors.PhaseAcquire, errors.KindInvalidInput).
			Handle(int32(h)).
			Detail("write of %d bytes at %d exceeds %d", len(pix), off, len(d.Data)).
			Build()
	}
	copy(d.Data[off:], pix)
	return nil
}

// pixels is a detached copy of an image buffer.
type pixels struct {
	Width  int32
	Height int32
	Stride int32
	Data   []byte
}

// snapshot copies the pixels of an image out under its lease.
func (s *Service) snapshot(h resource.Handle) (pixels, error) {
	img, ok := resource.Acquire[*resource.ImageData](s.reg, h)
	if !ok {
		return pixels{}, errors.InvalidHandle(errors.PhaseAcquire, int32(h))
	}
	defer img.Release()

	d := img.Value()
	return pixels{
		Width:  d.Width,
		Height: d.Height,
		Stride: d.Stride,
		Data:   append([]byte(nil), d.Data...),
	}, nil
}
