package dataset

import "fmt"

// UnknownTypeError is returned when a catalog entry names a dataset type
// nothing has registered.
type UnknownTypeError struct {
	Type      string
	Available []string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown dataset type %q\nAvailable types: %v\nHint: check the type field of your catalog entry", e.Type, e.Available)
}

// VersionNotFoundError is returned when load-version resolution finds no
// stored versions.
type VersionNotFoundError struct {
	Pattern string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("did not find any versions matching %q", e.Pattern)
}

// SavePathExistsError is returned when a versioned save would overwrite an
// already stored version.
type SavePathExistsError struct {
	Path string
}

func (e *SavePathExistsError) Error() string {
	return fmt.Sprintf("save path %q already exists; versioned saves must not overwrite stored versions", e.Path)
}

// VersionMismatchError is returned after a save when the version that
// loads is not the version that was just saved, either because the load
// version is pinned or because a newer version appeared concurrently.
type VersionMismatchError struct {
	Save string
	Load string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("save version %q did not match load version %q", e.Save, e.Load)
}
