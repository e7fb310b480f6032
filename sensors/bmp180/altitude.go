package bmp180

import "math"

const (
	QNH = 1013.25 // Reference pressure in hPa

	gasConstant   = 8.3144598 // J/(mol*K)
	referenceTemp = 298.15    // K, 25 °C
	gravity       = 9.80665   // m/s^2
	molarMassAir  = 0.0289644 // kg/mol
)

// Altitude returns the barometric altitude in meters for a pressure in Pa,
// rounded to centimeters. The reference temperature is fixed at 25 °C rather
// than taken from the sensor.
func Altitude(pressure float64) float64 {
	hPa := pressure / 100
	altitude := math.Log(QNH/hPa) * (gasConstant * referenceTemp) / (gravity * molarMassAir)
	return math.Round(altitude*100) / 100
}
