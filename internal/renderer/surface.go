package renderer

// Surface is a caller-owned display element a render target draws into.
//
// Present assigns h as the image to show. The surface calls done(nil)
// once h is on screen, or done(err) if it cannot show it; done may run on
// any goroutine, including synchronously from Present. A Present replaces
// any earlier handle the surface has not displayed yet: that handle is
// never displayed afterwards and its image is not read once Present
// returns. A surface copies the pixels it displays.
//
// Detach drops every reference the surface holds to presented handles.
type Surface interface {
	Present(h *Handle, done func(err error))
	Detach()
}

// SurfaceFunc adapts a present function into a Surface with a no-op Detach.
type SurfaceFunc func(h *Handle, done func(err error))

func (f SurfaceFunc) Present(h *Handle, done func(err error)) { f(h, done) }

func (f SurfaceFunc) Detach() {}
