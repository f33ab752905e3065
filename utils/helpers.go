package utils

import (
	"fmt"
	"net"
	"os"
)

// FileExists checks if a file exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

// FindAvailablePort finds an available TCP port starting from the given one.
func FindAvailablePort(start int) int {
	port := start
	for {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			listener.Close()
			return port
		}
		port++
	}
}
