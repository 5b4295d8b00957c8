//go:build windows

package config

// mapEnvKey lets configs written for unix hosts resolve on Windows.
func mapEnvKey(key string) string {
	switch key {
	case "HOSTNAME":
		return "COMPUTERNAME"
	case "USER":
		return "USERNAME"
	}
	return key
}
