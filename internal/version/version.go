package version

// Version is the current LogScope release version
const Version = "0.3.0"
