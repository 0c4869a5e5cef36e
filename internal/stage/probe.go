package stage

// CheckSupport reports whether the runtime supports motion-blur
// accumulation. The software rasterizer accumulates into plain RGBA
// buffers and is always available; the probe exists so GPU-backed
// drawing contexts, where float accumulation targets may be missing,
// can answer differently behind the same check.
func CheckSupport() bool {
	return true
}
