// Package hostabi exposes the resource registry and its consumers to wasm
// plugins as the flat host module "ppb".
//
// All handles and results cross the boundary as i32. Buffers are passed as
// (ptr, len) pairs into the calling module's memory. Every call is traced at
// debug level together with how completely the host implements it.
//
//	host := hostabi.New(reg, loaders, gfx, hostabi.WithLogger(log))
//	if _, err := host.Instantiate(ctx, rt); err != nil {
//		return err
//	}
//	// guest modules importing "ppb" can now be instantiated in rt
package hostabi
