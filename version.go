package metta

// Version of the engine, set at build time via -ldflags where needed.
var (
	Version   = "0.3.0"
	BuildDate = "dev"
)
