package cpu

const (
	Width  = 64
	Height = 32
)

// Framebuffer is the 64x32 monochrome display, stored row-major. It is a value
// type so sinks always get their own copy.
type Framebuffer [Width * Height]bool

func (fb *Framebuffer) At(x, y int) bool {
	return fb[y*Width+x]
}

func (fb *Framebuffer) Set(x, y int, on bool) {
	fb[y*Width+x] = on
}

// flip XORs the pixel at (x, y) and reports whether it was lit before.
func (fb *Framebuffer) flip(x, y int) bool {
	i := y*Width + x
	was := fb[i]
	fb[i] = !was
	return was
}

func (fb *Framebuffer) Clear() {
	*fb = Framebuffer{}
}

// Lit counts the pixels that are on.
func (fb *Framebuffer) Lit() int {
	n := 0
	for _, on := range fb {
		if on {
			n++
		}
	}
	return n
}
