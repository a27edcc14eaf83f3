package graphics

import "github.com/wippyai/plugin-runtime/resource"

// ViewState is the geometry and visibility of a view.
type ViewState struct {
	Rect        resource.Rect
	Clip        resource.Rect
	Visible     bool
	PageVisible bool
	Fullscreen  bool
	DeviceScale float32
	CSSScale    float32
}

// CreateView allocates a visible view covering rect, clipped to itself.
func (s *Service) CreateView(rect resource.Rect) resource.Handle {
	h := s.reg.Allocate(resource.TypeView)
	if v, ok := resource.Acquire[*resource.View](s.reg, h); ok {
		view := v.Value()
		view.Rect = rect
		view.Clip = resource.Rect{Width: rect.Width, Height: rect.Height}
		view.Visible = true
		view.PageVisible = true
		view.DeviceScale = 1
		view.CSSScale = 1
		v.Release()
	}
	return h
}

// IsView reports whether h is a live view.
func (s *Service) IsView(h resource.Handle) bool {
	return s.reg.GetType(h) == resource.TypeView
}

// ViewRect returns the rectangle of view h.
func (s *Service) ViewRect(h resource.Handle) (resource.Rect, bool) {
	st, ok := s.ViewState(h)
	return st.Rect, ok
}

// ViewState returns the full state of view h.
func (s *Service) ViewState(h resource.Handle) (ViewState, bool) {
	v, ok := resource.Acquire[*resource.View](s.reg, h)
	if !ok {
		return ViewState{}, false
	}
	defer v.Release()
	view := v.Value()
	return ViewState{
		Rect:        view.Rect,
		Clip:        view.Clip,
		Visible:     view.Visible,
		PageVisible: view.PageVisible,
		Fullscreen:  view.Fullscreen,
		DeviceScale: view.DeviceScale,
		CSSScale:    view.CSSScale,
	}, true
}

// UpdateView replaces the state of view h.
func (s *Service) UpdateView(h resource.Handle, st ViewState) bool {
	v, ok := resource.Acquire[*resource.View](s.reg, h)
	if !ok {
		return false
	}
	defer v.Release()
	view := v.Value()
	view.Rect = st.Rect
	view.Clip = st.Clip
	view.Visible = st.Visible
	view.PageVisible = st.PageVisible
	view.Fullscreen = st.Fullscreen
	view.DeviceScale = st.DeviceScale
	view.CSSScale = st.CSSScale
	return true
}
