package typeart

// Version is the module release.
const Version = "v0.3.0"
