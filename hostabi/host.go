package hostabi

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	pluginruntime "github.com/wippyai/plugin-runtime"
	"github.com/wippyai/plugin-runtime/graphics"
	"github.com/wippyai/plugin-runtime/loader"
	"github.com/wippyai/plugin-runtime/resource"
)

// ModuleName is the import module name plugins link against.
const ModuleName = "ppb"

// Support grades how completely a host function is implemented.
type Support int

const (
	SupportFull Support = iota
	SupportPart
	SupportZilch
)

func (s Support) String() string {
	switch s {
	case SupportFull:
		return "full"
	case SupportPart:
		return "part"
	default:
		return "zilch"
	}
}

var (
	i32   = api.ValueTypeI32
	none  []api.ValueType
	one   = []api.ValueType{i32}
	two   = []api.ValueType{i32, i32}
	three = []api.ValueType{i32, i32, i32}
	four  = []api.ValueType{i32, i32, i32, i32}
)

// Func describes one exported host function.
type Func struct {
	Name    string
	Support Support
	Params  []api.ValueType
	Results []api.ValueType
	Fn      api.GoModuleFunc
}

// Host binds registry consumers to the plugin ABI.
type Host struct {
	reg     *resource.Registry
	loaders *loader.Service
	gfx     *graphics.Service
	log     *zap.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the trace logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) { h.log = l }
}

// New creates a host over reg and its services.
func New(reg *resource.Registry, loaders *loader.Service, gfx *graphics.Service, opts ...Option) *Host {
	h := &Host{reg: reg, loaders: loaders, gfx: gfx}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	return h
}

// Instantiate builds the "ppb" host module into rt.
func (h *Host) Instantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	builder := rt.NewHostModuleBuilder(ModuleName)
	for _, f := range h.Funcs() {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(h.traced(f), f.Params, f.Results).
			Export(f.Name)
	}
	return builder.Instantiate(ctx)
}

// traced wraps f so each call logs its name, support level and arguments.
func (h *Host) traced(f Func) api.GoModuleFunc {
	if !h.log.Core().Enabled(zap.DebugLevel) {
		return f.Fn
	}
	msg := "[PPB] " + f.Support.String() + " " + f.Name
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		args := make([]int32, len(f.Params))
		for i := range args {
			args[i] = api.DecodeI32(stack[i])
		}
		f.Fn(ctx, mod, stack)
		fields := []zap.Field{zap.Int32s("args", args)}
		if len(f.Results) > 0 {
			fields = append(fields, zap.Int32("ret", api.DecodeI32(stack[0])))
		}
		h.log.Debug(msg, fields...)
	}
}

// Funcs returns the exported host functions.
func (h *Host) Funcs() []Func {
	return []Func{
		{"core_add_ref_resource", SupportFull, one, none, h.addRef},
		{"core_release_resource", SupportFull, one, none, h.release},
		{"resource_get_type", SupportFull, one, one, h.getType},

		{"url_loader_create", SupportFull, none, one, h.loaderCreate},
		{"url_loader_is_url_loader", SupportFull, one, one, h.isLoader},
		{"url_loader_open", SupportPart, two, one, h.loaderOpen},
		{"url_loader_follow_redirect", SupportZilch, one, one, h.loaderFollowRedirect},
		{"url_loader_get_download_progress", SupportFull, three, one, h.loaderDownloadProgress},
		{"url_loader_get_response_info", SupportFull, one, one, h.loaderResponseInfo},
		{"url_loader_read_response_body", SupportFull, three, one, h.loaderReadBody},
		{"url_loader_close", SupportFull, one, none, h.loaderClose},

		{"url_request_info_create", SupportFull, none, one, h.requestCreate},
		{"url_request_info_set_url", SupportFull, three, one, h.requestSetURL},
		{"url_request_info_append_data_to_body", SupportFull, three, one, h.requestAppendBody},
		{"url_response_info_get_status_code", SupportFull, one, one, h.responseStatusCode},

		{"image_data_create", SupportPart, four, one, h.imageCreate},
		{"image_data_is_image_data", SupportFull, one, one, h.isImage},
	}
}

func boolI32(b bool) uint64 {
	if b {
		return api.EncodeI32(1)
	}
	return api.EncodeI32(0)
}

func handleAt(stack []uint64, i int) resource.Handle {
	return resource.Handle(api.DecodeI32(stack[i]))
}

func resultI32(r pluginruntime.Result) uint64 {
	return api.EncodeI32(int32(r))
}

// guestBytes returns the (ptr, len) window of the caller's memory.
func guestBytes(mod api.Module, ptr, n uint32) ([]byte, bool) {
	mem := mod.Memory()
	if mem == nil {
		return nil, false
	}
	return mem.Read(ptr, n)
}
