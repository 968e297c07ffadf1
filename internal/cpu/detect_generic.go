//go:build !amd64 && !arm64

package cpu

import "runtime"

func detectFeatures() features {
	return features{arch: runtime.GOARCH}
}
