package common

import "os/user"

const feetPerMeter = 1 / 0.3048

// IsRunningAsRoot reports whether the process may install or remove the system service.
func IsRunningAsRoot() bool {
	usr, err := user.Current()
	if err != nil {
		return false
	}
	return usr.Username == "root"
}

// MetersToFeet converts an altitude in meters to feet.
func MetersToFeet(m float64) float64 {
	return m * feetPerMeter
}

// PascalToMillibar converts a pressure in Pa to mbar (hPa).
func PascalToMillibar(pa float64) float64 {
	return pa / 100
}
