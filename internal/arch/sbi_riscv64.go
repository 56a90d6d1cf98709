//go:build riscv64

package arch

// SBIConsolePutchar and SBIShutdown are the two SBI calls spec §6 lists as
// external collaborators reached only from the panic path (console output
// for the fatal diagnostic, then halt). klog.Panic does not call them: it
// writes through klog's own io.Writer and then raises a Go panic.

//go:noescape
func SBIConsolePutchar(c byte)

//go:noescape
func SBIShutdown()
