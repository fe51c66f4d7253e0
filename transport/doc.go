// Package transport provides hardware links for the sensor package.
//
// Serial is the UART connection to the module (8N1, 57600 baud by default).
// WakeupPin reads the module's finger-detect output through a host GPIO and
// is used only as a hint to pace polling.
package transport
