//go:build debug

package channel

// capacity returns the buffer size to allocate.
// In debug builds, every hand-off contends (ignores size)
func capacity(size int) int {
	return 1
}
