package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/b3nn0/altimeter/common"
	"github.com/b3nn0/altimeter/sensors"
	"github.com/b3nn0/altimeter/sensors/bmp180"
	humanize "github.com/dustin/go-humanize"
	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/takama/daemon"
)

// Initialize Prometheus metrics.
var (
	currentTemp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "baro_temperature_celsius",
		Help: "Last temperature measured by the BMP180.",
	})

	currentPressure = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "baro_pressure_pascal",
		Help: "Last pressure measured by the BMP180.",
	})

	currentAltitude = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "baro_altitude_meters",
		Help: "Pressure altitude against 1013.25 hPa.",
	})

	currentVerticalSpeed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "baro_vertical_speed_fpm",
		Help: "Smoothed vertical speed, feet per minute.",
	})

	totalReadings = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "baro_readings_total",
		Help: "Successful sensor readings.",
	})

	totalReadErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "baro_read_errors_total",
			Help: "Failed sensor readings by kind.",
		},
		[]string{"kind"},
	)
)

const (
	defaultConfigLocation = "/boot/altimeter.conf"

	// Consecutive failed reads before the sensor is closed and reconnected.
	numRetries uint8 = 5

	// how often to try connecting when no sensor is present
	connectDelay = 4 * time.Second

	defaultIntervalMS = 100
	defaultLogDir     = "/var/log"

	// Vertical speed decay time, seconds.
	vsiDecay = 5.0

	// name of the service
	name        = "altimeter"
	description = "BMP180 pressure altitude service"

	// Address on which daemon should be listen.
	defaultListenAddr = ":9978"
)

// Settings are read from flags and then overridden by configLocation.
type Settings struct {
	I2CBus             byte
	Address            byte
	Mode               bmp180.Oversampling
	CorrectRawPressure bool
	IntervalMS         int
	DEBUG              bool
}

// Status is served as JSON on /.
type Status struct {
	Connected     bool
	Temperature   float64 // °C
	Pressure      float64 // mbar
	Altitude      float64 // m
	AltitudeFeet  float64
	VerticalSpeed float64 // ft/min
	Readings      uint64
	Errors        uint64
	LastReading   string
	LastError     string

	lastReadingTime time.Time
}

var (
	settingsMu sync.Mutex
	mySettings = Settings{Address: bmp180.Address, IntervalMS: defaultIntervalMS}

	statusMu sync.Mutex
	myStatus Status
)

var configChan = make(chan bool, 1)

var configLocation = defaultConfigLocation

var stdlog, errlog *log.Logger

func currentSettings() Settings {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	return mySettings
}

func connectSensor(i2cbus *embd.I2CBus, s Settings) *sensors.BMP180 {
	bmp, err := sensors.NewBMP180(i2cbus, s.Address, bmp180.Config{
		Mode:               s.Mode,
		CorrectRawPressure: s.CorrectRawPressure,
	})
	if err != nil {
		log.Printf("BMP180 Error: couldn't initialize BMP180 at %#02x on bus %d: %s\n", s.Address, s.I2CBus, err)
		totalReadErrors.With(prometheus.Labels{"kind": errorKind(err)}).Inc()
		return nil
	}
	log.Printf("BMP180 Info: connected at %#02x on bus %d, oversampling %s\n", s.Address, s.I2CBus, s.Mode)
	logDbg("BMP180 calibration: %+v\n", bmp.Device().Calibration())
	return bmp
}

func errorKind(err error) string {
	var (
		readErr  *bmp180.BusReadError
		writeErr *bmp180.BusWriteError
	)
	switch {
	case errors.As(err, &readErr):
		return "read"
	case errors.As(err, &writeErr):
		return "write"
	}
	return "other"
}

func sensorLoop() {
	var (
		s        = currentSettings()
		i2cbus   = openI2CBus(s.I2CBus)
		bmp      *sensors.BMP180
		failnum  uint8
		altLast  = -9999.9
		dt       = float64(s.IntervalMS) / 1000
		interval = time.Duration(s.IntervalMS) * time.Millisecond
	)

	timer := time.NewTicker(interval)
	defer timer.Stop()
	for {
		if bmp == nil {
			bmp = connectSensor(&i2cbus, s)
			setConnected(bmp != nil)
			if bmp == nil {
				select {
				case <-time.After(connectDelay):
				case <-configChan:
					s, i2cbus, interval, dt = reload(s, i2cbus, timer)
				}
				continue
			}
		}

		select {
		case <-timer.C:
		case <-configChan:
			bmp.Close()
			bmp = nil
			altLast = -9999.9
			s, i2cbus, interval, dt = reload(s, i2cbus, timer)
			continue
		}

		r, err := bmp.Read()
		if err != nil {
			failnum++
			totalReadErrors.With(prometheus.Labels{"kind": errorKind(err)}).Inc()
			setError(err)
			log.Printf("BMP180 Error: couldn't read sensor: %s\n", err)
			if failnum > numRetries {
				log.Printf("BMP180 Error: couldn't read sensor %d times, closing BMP180: %s\n", failnum, err)
				bmp.Close()
				bmp = nil
				failnum = 0
				setConnected(false)
			}
			continue
		}
		failnum = 0

		if altLast < -2000 {
			altLast = r.Altitude // Initialize
		}
		updateStatus(r, altLast, dt)
		altLast = r.Altitude
	}
}

// openI2CBus returns embd's bus for a bus number. embd keeps one bus per
// number and cannot reopen it once closed, so buses are never closed here.
var openI2CBus = embd.NewI2CBus

// reload applies the current settings. The bus is only replaced when the
// configured bus number changes.
func reload(cur Settings, bus embd.I2CBus, timer *time.Ticker) (Settings, embd.I2CBus, time.Duration, float64) {
	s := currentSettings()
	if s.I2CBus != cur.I2CBus {
		log.Printf("BMP180 Info: switching from I2C bus %d to %d\n", cur.I2CBus, s.I2CBus)
		bus = openI2CBus(s.I2CBus)
	}
	interval := time.Duration(s.IntervalMS) * time.Millisecond
	timer.Reset(interval)
	log.Printf("BMP180 Info: settings reloaded, reading every %s\n", interval)
	return s, bus, interval, float64(s.IntervalMS) / 1000
}

func setConnected(connected bool) {
	statusMu.Lock()
	myStatus.Connected = connected
	statusMu.Unlock()
}

func setError(err error) {
	statusMu.Lock()
	myStatus.Errors++
	myStatus.LastError = err.Error()
	statusMu.Unlock()
}

func updateStatus(r bmp180.Reading, altLast, dt float64) {
	// Assuming timer is reasonably accurate, use a regular ewma
	u := vsiDecay / (vsiDecay + dt)
	climb := common.MetersToFeet(r.Altitude-altLast) / (dt / 60)

	statusMu.Lock()
	myStatus.Temperature = r.Temperature
	myStatus.Pressure = common.PascalToMillibar(r.Pressure)
	myStatus.Altitude = r.Altitude
	myStatus.AltitudeFeet = common.MetersToFeet(r.Altitude)
	myStatus.VerticalSpeed = u*myStatus.VerticalSpeed + (1-u)*climb
	myStatus.Readings++
	myStatus.lastReadingTime = time.Now()
	vs := myStatus.VerticalSpeed
	statusMu.Unlock()

	totalReadings.Inc()
	currentTemp.Set(r.Temperature)
	currentPressure.Set(r.Pressure)
	currentAltitude.Set(r.Altitude)
	currentVerticalSpeed.Set(vs)
}

// Service has embedded daemon
type Service struct {
	daemon.Daemon
}

// Manage by daemon commands or run the daemon
func (service *Service) Manage() (string, error) {

	bus := flag.Uint("bus", 1, "I2C bus number")
	address := flag.Uint("addr", uint(bmp180.Address), "BMP180 I2C address")
	mode := flag.Uint("mode", uint(bmp180.Sampling1X), "Pressure oversampling: 0 (1x), 1 (2x), 2 (4x), 3 (8x)")
	interval := flag.Int("interval", defaultIntervalMS, "Reading interval, ms")
	corrected := flag.Bool("corrected", false, "Use the XLSB pressure byte instead of repeating the MSB")
	logDir := flag.String("log", defaultLogDir, "Directory for "+debugLogFile)
	listen := flag.String("listen", defaultListenAddr, "Address for the status and metrics server")
	flag.StringVar(&configLocation, "conf", defaultConfigLocation, "JSON settings file, reread on SIGUSR1")
	flag.Parse()

	usage := "Usage: " + name + " install | remove | start | stop | status"
	// if received any kind of command, do it
	if flag.NArg() > 0 {
		command := flag.Arg(0)
		switch command {
		case "install", "remove":
			if !common.IsRunningAsRoot() {
				return usage, fmt.Errorf("%s must run as root", command)
			}
			if command == "install" {
				return service.Install()
			}
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		default:
			return usage, nil
		}
	}

	if *address > 0xFF || *bus > 0xFF {
		return usage, fmt.Errorf("bus %d or address %#x out of range", *bus, *address)
	}
	if *mode > uint(bmp180.Sampling8X) {
		return usage, fmt.Errorf("%w: %d", bmp180.ErrInvalidMode, *mode)
	}
	if *interval <= 0 {
		return usage, fmt.Errorf("interval must be positive, got %d", *interval)
	}

	settingsMu.Lock()
	mySettings.I2CBus = byte(*bus)
	mySettings.Address = byte(*address)
	mySettings.Mode = bmp180.Oversampling(*mode)
	mySettings.IntervalMS = *interval
	mySettings.CorrectRawPressure = *corrected
	settingsMu.Unlock()

	initLogging(*logDir)
	readSettings()

	prometheus.MustRegister(currentTemp)
	prometheus.MustRegister(currentPressure)
	prometheus.MustRegister(currentAltitude)
	prometheus.MustRegister(currentVerticalSpeed)
	prometheus.MustRegister(totalReadings)
	prometheus.MustRegister(totalReadErrors)

	go sensorLoop()

	// Set up channel on which to send signal notifications.
	// We must use a buffered channel or risk missing the signal
	// if we're not ready to receive when the signal is sent.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	http.HandleFunc("/", handleStatusRequest)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(*listen, nil); err != nil {
			log.Printf("BMP180 Error: status server stopped: %s\n", err)
		}
	}()

	// interrupt by system signal
	for {
		killSignal := <-interrupt
		log.Println("Got signal:", killSignal)
		if killSignal == syscall.SIGINT {
			return "Daemon was interrupted by system signal", nil
		} else if killSignal == syscall.SIGUSR1 {
			readSettings()
			select {
			case configChan <- true:
			default:
			}
		} else {
			return "Daemon was killed", nil
		}
	}
}

func readSettings() {
	buf, err := os.ReadFile(configLocation)
	if err != nil {
		log.Printf("can't read settings %s: %s\n", configLocation, err.Error())
		return
	}

	settingsMu.Lock()
	defer settingsMu.Unlock()
	s := mySettings
	if err := json.Unmarshal(buf, &s); err != nil {
		log.Printf("can't read settings %s: %s\n", configLocation, err.Error())
		return
	}
	if !s.Mode.Valid() || s.IntervalMS <= 0 {
		log.Printf("can't use settings %s: mode %d, interval %d ms\n", configLocation, s.Mode, s.IntervalMS)
		return
	}
	mySettings = s
	log.Printf("read in settings.\n")
}

func handleStatusRequest(w http.ResponseWriter, r *http.Request) {
	statusMu.Lock()
	status := myStatus
	statusMu.Unlock()
	if !status.lastReadingTime.IsZero() {
		status.LastReading = humanize.Time(status.lastReadingTime)
	}
	statusJSON, _ := json.Marshal(&status)
	w.Header().Set("Content-Type", "application/json")
	w.Write(statusJSON)
}

func init() {
	stdlog = log.New(os.Stdout, "", 0)
	errlog = log.New(os.Stderr, "", 0)
}

func main() {
	srv, err := daemon.New(name, description, daemon.SystemDaemon)
	if err != nil {
		errlog.Println("Error: ", err)
		os.Exit(1)
	}
	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		errlog.Println(status, "\nError: ", err)
		os.Exit(1)
	}
	stdlog.Println(status)
}
