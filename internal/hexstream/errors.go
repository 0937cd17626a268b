package hexstream

import "errors"

// Sentinel errors for the hexstream package.
var (
	// ErrPipeCreateFailed is returned when any of the six pipes could not be created.
	ErrPipeCreateFailed = errors.New("hexstream: pipe create failed")

	// ErrReadError names an unrecoverable drainer read failure. No function
	// in this package returns it: a drainer that hits such an error logs
	// it at warn level and stops.
	ErrReadError = errors.New("hexstream: read error")

	// ErrWriteError names an unrecoverable producer-side write failure. No
	// function in this package returns it: WriteStdin and WriteStdDatI
	// return the underlying file error as is.
	ErrWriteError = errors.New("hexstream: write error")

	// ErrControllerClosed names an operation on a closed Controller. No
	// function in this package returns it: writes after Close fail with
	// the underlying file error.
	ErrControllerClosed = errors.New("hexstream: controller closed")
)
