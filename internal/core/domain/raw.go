package domain

// RawDocument is the opaque byte payload a loader consumes, produced by the
// watcher or a one-off ingest request before normalisation.
type RawDocument struct {
	SourceID string
	Path     string
	MIME     string
	Content  []byte
	ModTime  int64 // unix millis, from the filesystem
}

// LoadErrorKind classifies why a loader failed to produce a Document.
type LoadErrorKind string

const (
	LoadErrorUnsupportedMIME LoadErrorKind = "unsupported_mime"
	LoadErrorDecode          LoadErrorKind = "decode_error"
	LoadErrorEmpty           LoadErrorKind = "empty"
	LoadErrorIO              LoadErrorKind = "io"
)

// LoadError is returned by a Loader when a single file cannot be converted
// into a Document. The ingest pipeline records it on the job and continues
// with the rest of the batch.
type LoadError struct {
	Kind LoadErrorKind
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Path + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Path
}

func (e *LoadError) Unwrap() error { return e.Err }
