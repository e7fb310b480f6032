package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/b3nn0/altimeter/common"
	"github.com/b3nn0/altimeter/sensors/bmp180"
	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
)

func main() {
	bus := flag.Uint("bus", 1, "I2C bus number")
	addr := flag.Uint("addr", uint(bmp180.Address), "BMP180 I2C address")
	mode := flag.Uint("mode", 0, "Pressure oversampling 0-3")
	corrected := flag.Bool("corrected", false, "Use the XLSB pressure byte")
	count := flag.Int("n", 10, "Number of readings, 0 for forever")
	flag.Parse()

	i2cbus := embd.NewI2CBus(byte(*bus))
	defer i2cbus.Close()

	dev, err := bmp180.New(bmp180.EmbdBus{Bus: i2cbus}, byte(*addr), bmp180.Config{
		Mode:               bmp180.Oversampling(*mode),
		CorrectRawPressure: *corrected,
	})
	if err != nil {
		log.Fatalf("bmp180.New(): %s\n", err)
	}
	fmt.Printf("Calibration %+v\n", dev.Calibration())

	for i := 0; *count == 0 || i < *count; i++ {
		r, err := dev.Read()
		if err != nil {
			fmt.Printf("Read(): %s\n", err)
		} else {
			fmt.Printf("Temp %.1f C Press %.2f mbar Alt %.2f m (%.0f ft)\n",
				r.Temperature, common.PascalToMillibar(r.Pressure), r.Altitude, common.MetersToFeet(r.Altitude))
		}
		time.Sleep(time.Second)
	}
}
