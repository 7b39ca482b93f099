package cli

// SilentError wraps an error that has already produced user-facing
// output (a warning, a partial result); main.go checks for it so it
// does not print the underlying error a second time.
type SilentError struct {
	Err error
}

func NewSilentError(err error) *SilentError { return &SilentError{Err: err} }

func (e *SilentError) Error() string { return e.Err.Error() }
func (e *SilentError) Unwrap() error { return e.Err }
