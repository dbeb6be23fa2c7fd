package settings

// version is overridden at build time with -ldflags "-X .../settings.version=..."
var version = "dev"
