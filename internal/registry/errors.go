package registry

// configurationNotFoundError signals a missing model_config.json for 404 mapping.
type configurationNotFoundError struct{ name string }

func (e configurationNotFoundError) Error() string {
	return "model configuration not found for " + e.name
}

// ErrConfigurationNotFound constructs the error returned when a model
// directory has no descriptor file.
func ErrConfigurationNotFound(name string) error { return configurationNotFoundError{name: name} }

// IsConfigurationNotFound reports whether err indicates a missing descriptor.
func IsConfigurationNotFound(err error) bool {
	_, ok := err.(configurationNotFoundError)
	return ok
}

// configurationInvalidError signals a descriptor that parsed but failed
// validation, or did not parse at all.
type configurationInvalidError struct {
	name string
	err  error
}

func (e configurationInvalidError) Error() string {
	return "invalid model configuration for " + e.name + ": " + e.err.Error()
}

func (e configurationInvalidError) Unwrap() error { return e.err }

// ErrConfigurationInvalid constructs a configurationInvalidError.
func ErrConfigurationInvalid(name string, err error) error {
	return configurationInvalidError{name: name, err: err}
}

// IsConfigurationInvalid reports whether err indicates a malformed descriptor.
func IsConfigurationInvalid(err error) bool {
	_, ok := err.(configurationInvalidError)
	return ok
}

// unsupportedFrameworkError signals a descriptor naming an unrecognized
// framework kind.
type unsupportedFrameworkError struct{ framework string }

func (e unsupportedFrameworkError) Error() string {
	return "unsupported framework: " + e.framework
}

// ErrUnsupportedFramework constructs an unsupportedFrameworkError.
func ErrUnsupportedFramework(framework string) error {
	return unsupportedFrameworkError{framework: framework}
}

// IsUnsupportedFramework reports whether err indicates an unrecognized
// framework kind.
func IsUnsupportedFramework(err error) bool {
	_, ok := err.(unsupportedFrameworkError)
	return ok
}

// runtimeUnavailableError signals that the declared framework's native
// runtime is not present in this process, distinct from a missing artifact.
// The HTTP layer maps it to 503.
type runtimeUnavailableError struct{ msg string }

func (e runtimeUnavailableError) Error() string { return e.msg }

// ErrRuntimeUnavailable constructs a runtimeUnavailableError.
func ErrRuntimeUnavailable(msg string) error { return runtimeUnavailableError{msg: msg} }

// IsRuntimeUnavailable reports whether err indicates a missing runtime.
func IsRuntimeUnavailable(err error) bool {
	_, ok := err.(runtimeUnavailableError)
	return ok
}

// modelNotLoadedError signals predict/pre/post before a successful load.
type modelNotLoadedError struct{ name string }

func (e modelNotLoadedError) Error() string { return "model not loaded: " + e.name }

// ErrModelNotLoaded constructs a modelNotLoadedError.
func ErrModelNotLoaded(name string) error { return modelNotLoadedError{name: name} }

// IsModelNotLoaded reports whether err indicates the model has no usable
// cache entry.
func IsModelNotLoaded(err error) bool {
	_, ok := err.(modelNotLoadedError)
	return ok
}
