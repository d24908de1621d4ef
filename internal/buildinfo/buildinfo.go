// Package buildinfo holds release metadata set at link time, e.g.
//
//	go build -ldflags "-X github.com/aidanlsb/discourse/internal/buildinfo.Version=v0.3.0"
//
// Local builds leave them empty and dg version reads module build info instead.
package buildinfo

var (
	Version = ""
	Commit  = ""
	Date    = ""
)
