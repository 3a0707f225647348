package version

// Version is the current aster release.
var Version = "0.3.0"
