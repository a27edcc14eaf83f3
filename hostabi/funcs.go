package hostabi

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	pluginruntime "github.com/wippyai/plugin-runtime"
	"github.com/wippyai/plugin-runtime/errors"
	"github.com/wippyai/plugin-runtime/loader"
	"github.com/wippyai/plugin-runtime/resource"
)

func (h *Host) addRef(_ context.Context, _ api.Module, stack []uint64) {
	h.reg.Ref(handleAt(stack, 0))
}

func (h *Host) release(_ context.Context, _ api.Module, stack []uint64) {
	h.reg.Unref(handleAt(stack, 0))
}

func (h *Host) getType(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(int32(h.reg.GetType(handleAt(stack, 0))))
}

func (h *Host) loaderCreate(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(int32(h.loaders.Create()))
}

func (h *Host) isLoader(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = boolI32(h.loaders.IsURLLoader(handleAt(stack, 0)))
}

// loaderOpen opens synchronously; guests cannot pass completion callbacks.
func (h *Host) loaderOpen(ctx context.Context, _ api.Module, stack []uint64) {
	err := h.loaders.Open(ctx, handleAt(stack, 0), handleAt(stack, 1), pluginruntime.CompletionCallback{})
	stack[0] = resultI32(errors.Result(err))
}

func (h *Host) loaderFollowRedirect(_ context.Context, _ api.Module, stack []uint64) {
	err := h.loaders.FollowRedirect(handleAt(stack, 0), pluginruntime.CompletionCallback{})
	stack[0] = resultI32(errors.Result(err))
}

// loaderDownloadProgress writes received and total as little endian i64 at
// the two pointers.
func (h *Host) loaderDownloadProgress(_ context.Context, mod api.Module, stack []uint64) {
	received, total, ok := h.loaders.GetDownloadProgress(handleAt(stack, 0))
	if !ok {
		stack[0] = boolI32(false)
		return
	}
	mem := mod.Memory()
	if mem == nil ||
		!mem.WriteUint64Le(api.DecodeU32(stack[1]), uint64(received)) ||
		!mem.WriteUint64Le(api.DecodeU32(stack[2]), uint64(total)) {
		stack[0] = boolI32(false)
		return
	}
	stack[0] = boolI32(true)
}

func (h *Host) loaderResponseInfo(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(int32(h.loaders.GetResponseInfo(handleAt(stack, 0))))
}

// loaderReadBody returns the byte count, or a negative result code.
func (h *Host) loaderReadBody(_ context.Context, mod api.Module, stack []uint64) {
	buf, ok := guestBytes(mod, api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
	if !ok {
		stack[0] = resultI32(pluginruntime.ErrorBadArgument)
		return
	}
	n, err := h.loaders.ReadResponseBody(handleAt(stack, 0), buf)
	if err != nil {
		stack[0] = resultI32(errors.Result(err))
		return
	}
	stack[0] = api.EncodeI32(int32(n))
}

func (h *Host) loaderClose(_ context.Context, _ api.Module, stack []uint64) {
	h.loaders.Close(handleAt(stack, 0))
}

func (h *Host) requestCreate(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(int32(h.loaders.CreateRequestInfo()))
}

func (h *Host) requestSetURL(_ context.Context, mod api.Module, stack []uint64) {
	raw, ok := guestBytes(mod, api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
	if !ok {
		stack[0] = boolI32(false)
		return
	}
	err := h.loaders.SetProperty(handleAt(stack, 0), loader.PropertyURL, string(raw))
	stack[0] = boolI32(err == nil)
}

func (h *Host) requestAppendBody(_ context.Context, mod api.Module, stack []uint64) {
	data, ok := guestBytes(mod, api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
	if !ok {
		stack[0] = boolI32(false)
		return
	}
	err := h.loaders.AppendDataToBody(handleAt(stack, 0), data)
	stack[0] = boolI32(err == nil)
}

// responseStatusCode returns the status code, or 0 for a bad handle.
func (h *Host) responseStatusCode(_ context.Context, _ api.Module, stack []uint64) {
	v, err := h.loaders.GetResponseProperty(handleAt(stack, 0), loader.ResponseStatusCode)
	code, _ := v.(int32)
	if err != nil {
		code = 0
	}
	stack[0] = api.EncodeI32(code)
}

func (h *Host) imageCreate(_ context.Context, _ api.Module, stack []uint64) {
	format := resource.ImageFormat(api.DecodeI32(stack[0]))
	w, ht := api.DecodeI32(stack[1]), api.DecodeI32(stack[2])
	zero := api.DecodeI32(stack[3]) != 0
	img, err := h.gfx.CreateImageData(format, w, ht, zero)
	if err != nil {
		h.log.Debug("image data create rejected", zap.Error(err))
	}
	stack[0] = api.EncodeI32(int32(img))
}

func (h *Host) isImage(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = boolI32(h.gfx.IsImageData(handleAt(stack, 0)))
}
