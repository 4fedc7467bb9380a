package config

import (
	"os"
	"strings"
	"sync"
)

// dockerHostAlias reaches the host machine from inside a Docker container.
const dockerHostAlias = "host.docker.internal"

// dockerEnvFile is created by the Docker runtime in every container.
var dockerEnvFile = "/.dockerenv"

var (
	inDockerOnce sync.Once
	inDocker     bool
)

// IsRunningInDocker reports whether the process runs in a Docker container. The check is
// made once per process.
func IsRunningInDocker() bool {
	inDockerOnce.Do(func() {
		_, err := os.Stat(dockerEnvFile)
		inDocker = err == nil
	})
	return inDocker
}

func isLoopback(host string) bool {
	switch strings.ToLower(strings.Trim(host, "[]")) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// ResolveHostForDocker rewrites a loopback database host to host.docker.internal inside a
// container, so sources configured for the host machine stay reachable. Other hosts pass
// through.
func ResolveHostForDocker(host string) string {
	if isLoopback(host) && IsRunningInDocker() {
		return dockerHostAlias
	}
	return host
}
