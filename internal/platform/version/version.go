package version

import (
	"runtime"
	"runtime/debug"
)

// Build information, injected via ldflags at build time
var (
	// Version is the git tag or semantic version
	Version = "dev"
	// Commit is the git commit SHA
	Commit = "unknown"
	// BuildTime is the ISO 8601 build timestamp
	BuildTime = "unknown"
)

const cryptoModule = "github.com/tuneinsight/lattigo/v6"

// Info holds complete build information
type Info struct {
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	BuildTime     string `json:"build_time"`
	GoVersion     string `json:"go_version"`
	CryptoLibrary string `json:"crypto_library"`
}

// Get returns the current build information
func Get() Info {
	return Info{
		Version:       Version,
		Commit:        Commit,
		BuildTime:     BuildTime,
		GoVersion:     runtime.Version(),
		CryptoLibrary: cryptoLibrary(),
	}
}

// cryptoLibrary reports the linked lattigo version, or just the module path
// when build info is unavailable (e.g. in tests).
func cryptoLibrary() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return cryptoModule
	}
	for _, dep := range info.Deps {
		if dep.Path == cryptoModule {
			return dep.Path + "@" + dep.Version
		}
	}
	return cryptoModule
}
