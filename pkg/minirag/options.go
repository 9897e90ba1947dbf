package minirag

type options struct {
	compression Compression
}

func defaultOptions() options {
	return options{compression: CompressionZSTD}
}

// Option configures an Index.
type Option func(*options)

// WithCompression selects the codec used for the payload file written by Save.
// Load detects the codec from the file, so this only affects writing.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}
