// Package version reports the build of the running binary. Version, Commit
// and BuildTime are set at link time:
//
//	go build -ldflags "-X github.com/Mulet-J/desktopeye/version.Version=1.0.0" ./cmd/desktopeye
package version
