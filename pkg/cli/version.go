package cli

// Version is the released version of the tool. Release builds override it
// with -ldflags "-X github.com/Fepozopo/convolve/pkg/cli.Version=...".
var Version = "0.3.1"

// repo is the GitHub repository queried for releases.
const repo = "Fepozopo/convolve"
