package multiarena

// Option configures a runtime-fixed-geometry constructor. Unset options
// default to a plain Go-heap byte source.
type Option func(*config)

type config struct {
	byteSource ByteSource
}

func defaultConfig() config {
	return config{byteSource: HeapSource{}}
}

// WithByteSource overrides the upstream byte-source consulted once at
// construction and once at Close. See MmapSource and FileMmapSource for
// alternatives to the default HeapSource.
func WithByteSource(src ByteSource) Option {
	return func(c *config) { c.byteSource = src }
}
