package version

// Version of the SpaceLink CLI, set at release time with
//
//	go build -ldflags="-X 'github.com/BioHazard786/SpaceLink/cli/internal/version.Version=v1.0.0'"
var Version = "dev"
