package graphics

import (
	"go.uber.org/zap"

	"github.com/wippyai/plugin-runtime/errors"
	"github.com/wippyai/plugin-runtime/resource"
)

// CreateGraphics2D allocates a w by h drawing surface.
func (s *Service) CreateGraphics2D(w, h int32, opaque bool) (resource.Handle, error) {
	if err := checkSize(w, h); err != nil {
		return resource.InvalidHandle, err
	}

	hd := s.reg.Allocate(resource.TypeGraphics2D)
	g, ok := resource.Acquire[*resource.Graphics2D](s.reg, hd)
	if !ok {
		return resource.InvalidHandle, errors.Closed(errors.PhaseAllocate, "registry")
	}
	defer g.Release()

	v := g.Value()
	v.Width = w
	v.Height = h
	v.Stride = w * bytesPerPixel
	v.Data = make([]byte, int(v.Stride)*int(h))
	v.Opaque = opaque
	v.Scale = 1
	return hd, nil
}

// IsGraphics2D reports whether h is a live 2D surface.
func (s *Service) IsGraphics2D(h resource.Handle) bool {
	return s.reg.GetType(h) == resource.TypeGraphics2D
}

// Size returns the dimensions of surface g.
func (s *Service) Size(g resource.Handle) (w, h int32, opaque, ok bool) {
	lease, ok := resource.Acquire[*resource.Graphics2D](s.reg, g)
	if !ok {
		return 0, 0, false, false
	}
	defer lease.Release()
	v := lease.Value()
	return v.Width, v.Height, v.Opaque, true
}

// SetScale sets the device scale of surface g. Scale must be positive.
func (s *Service) SetScale(g resource.Handle, scale float32) bool {
	if scale <= 0 {
		return false
	}
	lease, ok := resource.Acquire[*resource.Graphics2D](s.reg, g)
	if !ok {
		return false
	}
	defer lease.Release()
	lease.Value().Scale = scale
	return true
}

// Scale returns the device scale of surface g, or 0 when g is not a surface.
func (s *Service) Scale(g resource.Handle) float32 {
	lease, ok := resource.Acquire[*resource.Graphics2D](s.reg, g)
	if !ok {
		return 0
	}
	defer lease.Release()
	return lease.Value().Scale
}

// PaintImageData copies image img onto surface g with its top left corner
// at (x, y). Pixels falling outside the surface are clipped.
func (s *Service) PaintImageData(g, img resource.Handle, x, y int32) error {
	src, err := s.snapshot(img)
	if err != nil {
		return err
	}

	lease, ok := resource.Acquire[*resource.Graphics2D](s.reg, g)
	if !ok {
		return errors.InvalidHandle(errors.PhaseAcquire, int32(g))
	}
	defer lease.Release()
	dst := lease.Value()

	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+src.Width, dst.Width), min(y+src.Height, dst.Height)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}
	rowBytes := int(x1-x0) * bytesPerPixel
	for row := y0; row < y1; row++ {
		so := int(row-y)*int(src.Stride) + int(x0-x)*bytesPerPixel
		do := int(row)*int(dst.Stride) + int(x0)*bytesPerPixel
		copy(dst.Data[do:do+rowBytes], src.Data[so:so+rowBytes])
	}
	s.log.Debug("paint image data",
		zap.Int32("graphics", int32(g)),
		zap.Int32("image", int32(img)),
		zap.Int32("x", x),
		zap.Int32("y", y))
	return nil
}

// ReplaceContents replaces the pixels of g with those of img. Sizes must
// match.
func (s *Service) ReplaceContents(g, img resource.Handle) error {
	src, err := s.snapshot(img)
	if err != nil {
		return err
	}

	lease, ok := resource.Acquire[*resource.Graphics2D](s.reg, g)
	if !ok {
		return errors.InvalidHandle(errors.PhaseAcquire, int32(g))
	}
	defer lease.Release()
	dst := lease.Value()

	if src.Width != dst.Width || src.Height != dst.Height {
		return errors.New(errors.PhaseAcquire, errors.KindInvalidInput).
			Handle(int32(img)).
			Detail("image is %dx%d, surface is %dx%d", src.Width, src.Height, dst.Width, dst.Height).
			Build()
	}
	dst.Data = src.Data
	return nil
}

// ReadPixels returns a copy of the pixels of surface g.
func (s *Service) ReadPixels(g resource.Handle) ([]byte, bool) {
	lease, ok := resource.Acquire[*resource.Graphics2D](s.reg, g)
	if !ok {
		return nil, false
	}
	defer lease.Release()
	return append([]byte(nil), lease.Value().Data...), true
}

// CreateGraphics3D allocates a 3D context record with the given attribute
// list. Only the bookkeeping is kept; there is no rendering backend.
func (s *Service) CreateGraphics3D(w, h int32, attribs []int32) (resource.Handle, error) {
	if err := checkSize(w, h); err != nil {
		return resource.InvalidHandle, err
	}
	hd := s.reg.Allocate(resource.TypeGraphics3D)
	g, ok := resource.Acquire[*resource.Graphics3D](s.reg, hd)
	if !ok {
		return resource.InvalidHandle, errors.Closed(errors.PhaseAllocate, "registry")
	}
	defer g.Release()
	v := g.Value()
	v.Width = w
	v.Height = h
	v.Attribs = append([]int32(nil), attribs...)
	return hd, nil
}

// ResizeBuffers changes the size of 3D context g.
func (s *Service) ResizeBuffers(g resource.Handle, w, h int32) error {
	if err := checkSize(w, h); err != nil {
		return err
	}
	lease, ok := resource.Acquire[*resource.Graphics3D](s.reg, g)
	if !ok {
		return errors.InvalidHandle(errors.PhaseAcquire, int32(g))
	}
	defer lease.Release()
	lease.Value().Width = w
	lease.Value().Height = h
	return nil
}
