//go:build !debug

package channel

// capacity returns the buffer size to allocate.
// In production builds, this is the requested size.
func capacity(size int) int {
	return size
}
