package graphics

import (
	"bytes"
	"testing"

	"github.com/wippyai/plugin-runtime/resource"
)

func solid(w, h int32, b byte) []byte {
	return bytes.Repeat([]byte{b}, int(w*h*bytesPerPixel))
}

func TestService_CreateImageData(t *testing.T) {
	svc := New(resource.New())

	tests := []struct {
		name    string
		format  resource.ImageFormat
		w, h    int32
		wantErr bool
	}{
		{"bgra", resource.FormatBGRAPremul, 4, 3, false},
		{"rgba", resource.FormatRGBAPremul, 1, 1, false},
		{"zero width", NativeFormat, 0, 3, true},
		{"negative height", NativeFormat, 3, -1, true},
		{"too wide", NativeFormat, MaxDimension + 1, 1, true},
		{"unknown format", resource.ImageFormat(7), 2, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := svc.CreateImageData(tt.format, tt.w, tt.h, true)
			if tt.wantErr {
				if err == nil || h != resource.InvalidHandle {
					t.Fatalf("CreateImageData() = %d, %v, want error", h, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateImageData() error: %v", err)
			}
			if !svc.IsImageData(h) {
				t.Fatal("not an image data")
			}
			desc, ok := svc.Describe(h)
			if !ok || desc.Format != tt.format || desc.Width != tt.w || desc.Height != tt.h || desc.Stride != tt.w*4 {
				t.Errorf("Describe() = %+v, %v", desc, ok)
			}
			pix, _ := svc.Map(h)
			if len(pix) != int(tt.w*tt.h*4) || !bytes.Equal(pix, make([]byte, len(pix))) {
				t.Errorf("Map() returned %d bytes, want zeroed %d", len(pix), tt.w*tt.h*4)
			}
		})
	}
}

func TestService_MapIsCopy(t *testing.T) {
	svc := New(resource.New())
	h, _ := svc.CreateImageData(NativeFormat, 2, 2, true)

	pix, _ := svc.Map(h)
	pix[0] = 0xff
	again, _ := svc.Map(h)
	if again[0] != 0 {
		t.Error("Map should return a copy")
	}

	if err := svc.Store(h, 4, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	again, _ = svc.Map(h)
	if !bytes.Equal(again[4:8], []byte{1, 2, 3, 4}) {
		t.Errorf("pixels = %v", again[:8])
	}
	if err := svc.Store(h, 14, []byte{1, 2, 3}); err == nil {
		t.Error("Store past the end should fail")
	}
	if err := svc.Store(0, 0, nil); err == nil {
		t.Error("Store on invalid handle should fail")
	}
}

func TestService_PaintImageData(t *testing.T) {
	svc := New(resource.New())
	g, err := svc.CreateGraphics2D(4, 4, true)
	if err != nil {
		t.Fatal(err)
	}
	img, _ := svc.CreateImageData(NativeFormat, 2, 2, true)
	if err := svc.Store(img, 0, solid(2, 2, 9)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		x, y    int32
		painted int // pixels set to 9
	}{
		{"inside", 1, 1, 4},
		{"clipped corner", 3, 3, 1},
		{"clipped negative", -1, 0, 2},
		{"fully outside", 10, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := svc.CreateGraphics2D(4, 4, false)
			if err := svc.PaintImageData(g, img, tt.x, tt.y); err != nil {
				t.Fatalf("PaintImageData() error: %v", err)
			}
			pix, _ := svc.ReadPixels(g)
			n := 0
			for i := 0; i < len(pix); i += 4 {
				if pix[i] == 9 {
					n++
				}
			}
			if n != tt.painted {
				t.Errorf("painted %d pixels, want %d", n, tt.painted)
			}
		})
	}

	if err := svc.PaintImageData(g, g, 0, 0); err == nil {
		t.Error("painting a surface as an image should fail")
	}
	if err := svc.PaintImageData(img, img, 0, 0); err == nil {
		t.Error("painting onto an image should fail")
	}
}

func TestService_ReplaceContents(t *testing.T) {
	svc := New(resource.New())
	g, _ := svc.CreateGraphics2D(2, 2, true)
	img, _ := svc.CreateImageData(NativeFormat, 2, 2, true)
	svc.Store(img, 0, solid(2, 2, 5))

	if err := svc.ReplaceContents(g, img); err != nil {
		t.Fatalf("ReplaceContents() error: %v", err)
	}
	pix, _ := svc.ReadPixels(g)
	if !bytes.Equal(pix, solid(2, 2, 5)) {
		t.Errorf("pixels = %v", pix)
	}

	small, _ := svc.CreateImageData(NativeFormat, 1, 1, true)
	if err := svc.ReplaceContents(g, small); err == nil {
		t.Error("size mismatch should fail")
	}
}

func TestService_Graphics2DProperties(t *testing.T) {
	svc := New(resource.New())
	g, _ := svc.CreateGraphics2D(3, 2, true)

	if w, h, opaque, ok := svc.Size(g); !ok || w != 3 || h != 2 || !opaque {
		t.Errorf("Size() = %d, %d, %v, %v", w, h, opaque, ok)
	}
	if svc.Scale(g) != 1 {
		t.Errorf("Scale() = %v, want 1", svc.Scale(g))
	}
	if !svc.SetScale(g, 2) || svc.Scale(g) != 2 {
		t.Error("SetScale(2) failed")
	}
	if svc.SetScale(g, 0) {
		t.Error("SetScale(0) should fail")
	}
	if !svc.IsGraphics2D(g) || svc.IsGraphics2D(0) {
		t.Error("IsGraphics2D mismatch")
	}
	if _, err := svc.CreateGraphics2D(0, 0, false); err == nil {
		t.Error("empty surface should fail")
	}
}

func TestService_Graphics3D(t *testing.T) {
	reg := resource.New()
	svc := New(reg)
	g, err := svc.CreateGraphics3D(64, 32, []int32{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if reg.GetType(g) != resource.TypeGraphics3D {
		t.Fatalf("type = %v", reg.GetType(g))
	}
	if err := svc.ResizeBuffers(g, 128, 64); err != nil {
		t.Fatalf("ResizeBuffers() error: %v", err)
	}
	if err := svc.ResizeBuffers(g, -1, 64); err == nil {
		t.Error("negative size should fail")
	}
	if err := svc.ResizeBuffers(0, 1, 1); err == nil {
		t.Error("invalid handle should fail")
	}
}

func TestService_View(t *testing.T) {
	svc := New(resource.New())
	rect := resource.Rect{X: 10, Y: 20, Width: 300, Height: 200}
	v := svc.CreateView(rect)

	if !svc.IsView(v) {
		t.Fatal("not a view")
	}
	if got, ok := svc.ViewRect(v); !ok || got != rect {
		t.Errorf("ViewRect() = %+v, %v", got, ok)
	}
	st, _ := svc.ViewState(v)
	if !st.Visible || st.Clip != (resource.Rect{Width: 300, Height: 200}) || st.DeviceScale != 1 {
		t.Errorf("ViewState() = %+v", st)
	}

	st.Fullscreen = true
	st.Rect.Width = 640
	if !svc.UpdateView(v, st) {
		t.Fatal("UpdateView failed")
	}
	if got, _ := svc.ViewState(v); !got.Fullscreen || got.Rect.Width != 640 {
		t.Errorf("ViewState() after update = %+v", got)
	}
	if _, ok := svc.ViewRect(0); ok {
		t.Error("ViewRect(0) should fail")
	}
}

func TestService_ImageTeardown(t *testing.T) {
	reg := resource.New()
	svc := New(reg)
	h, _ := svc.CreateImageData(NativeFormat, 8, 8, true)
	reg.Unref(h)
	if svc.IsImageData(h) {
		t.Error("image should be destroyed")
	}
	if _, ok := svc.Map(h); ok {
		t.Error("Map after destroy should fail")
	}
}
