package core

import "errors"

// Error kinds shared by every package. Callers match them with errors.Is;
// packages wrap them with their own context.
var (
	// ErrConfig indicates missing or invalid configuration, such as no image path.
	ErrConfig = errors.New("core: invalid configuration")
	// ErrLoad indicates an image could not be read or decoded.
	ErrLoad = errors.New("core: image load failed")
	// ErrParse indicates a kernel description could not be turned into a kernel.
	ErrParse = errors.New("core: kernel parse failed")
	// ErrSave indicates an image could not be encoded or written.
	ErrSave = errors.New("core: image save failed")
	// ErrShape indicates buffer dimensions that cannot be processed.
	ErrShape = errors.New("core: invalid buffer shape")
)
