package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/b3nn0/altimeter/sensors/bmp180"
	"github.com/kidoman/embd"
)

type countingBus struct {
	embd.I2CBus
	number byte
	closed int
}

func (b *countingBus) Close() error {
	b.closed++
	return nil
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&bmp180.BusReadError{Register: bmp180.RegData, Len: 3, Err: errors.New("nack")}, "read"},
		{fmt.Errorf("reading: %w", &bmp180.BusWriteError{Register: bmp180.RegCtrlMeas}), "write"},
		{bmp180.ErrInvalidCalibration, "other"},
	}
	for _, c := range cases {
		if got := errorKind(c.err); got != c.want {
			t.Errorf("errorKind(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}

func TestReadSettings(t *testing.T) {
	saved, savedLocation := mySettings, configLocation
	defer func() { mySettings, configLocation = saved, savedLocation }()

	configLocation = filepath.Join(t.TempDir(), "altimeter.conf")
	mySettings = Settings{I2CBus: 1, Address: bmp180.Address, IntervalMS: defaultIntervalMS}

	os.WriteFile(configLocation, []byte(`{"Mode": 3, "IntervalMS": 250}`), 0644)
	readSettings()
	s := currentSettings()
	if s.Mode != bmp180.Sampling8X || s.IntervalMS != 250 || s.Address != bmp180.Address || s.I2CBus != 1 {
		t.Errorf("settings after valid file: %+v", s)
	}

	os.WriteFile(configLocation, []byte(`{"Mode": 5}`), 0644)
	readSettings()
	if s2 := currentSettings(); s2 != s {
		t.Errorf("invalid mode changed settings to %+v", s2)
	}
}

func TestRotateLogs(t *testing.T) {
	dir := t.TempDir()
	defer func() {
		log.SetOutput(os.Stderr)
		if logFileHandle != nil {
			logFileHandle.Close()
			logFileHandle = nil
		}
	}()

	logDirf = dir
	for _, name := range []string{debugLogFile + ".1", debugLogFile + ".9"} {
		os.WriteFile(filepath.Join(dir, name), []byte(name), 0644)
	}
	openLogFile()
	log.Print("current")

	rotateLogs()

	logs := getLogFiles()
	want := []string{
		filepath.Join(dir, debugLogFile+".1"),
		filepath.Join(dir, debugLogFile+".2"),
	}
	if len(logs) != len(want) {
		t.Fatalf("logs %v, want %v", logs, want)
	}
	for i := range want {
		if logs[i] != want[i] {
			t.Errorf("log %d: %s, want %s", i, logs[i], want[i])
		}
	}
	if old, _ := os.ReadFile(want[1]); string(old) != debugLogFile+".1" {
		t.Errorf("%s holds %q", want[1], old)
	}
	if _, err := os.Stat(filepath.Join(dir, debugLogFile)); err != nil {
		t.Errorf("current log not reopened: %v", err)
	}
}

func TestReloadKeepsBus(t *testing.T) {
	saved, savedOpen := mySettings, openI2CBus
	defer func() { mySettings, openI2CBus = saved, savedOpen }()

	var opened []byte
	openI2CBus = func(n byte) embd.I2CBus {
		opened = append(opened, n)
		return &countingBus{number: n}
	}
	timer := time.NewTicker(time.Hour)
	defer timer.Stop()

	cur := Settings{I2CBus: 1, Address: bmp180.Address, IntervalMS: defaultIntervalMS}
	live := &countingBus{number: 1}
	mySettings = cur
	mySettings.IntervalMS = 250

	s, bus, interval, dt := reload(cur, live, timer)
	if bus != embd.I2CBus(live) || live.closed != 0 || len(opened) != 0 {
		t.Errorf("same-bus reload: bus %v, closed %d, opened %v", bus, live.closed, opened)
	}
	if s.IntervalMS != 250 || interval != 250*time.Millisecond || dt != 0.25 {
		t.Errorf("reload: %+v, %s, %f", s, interval, dt)
	}

	mySettings.I2CBus = 2
	s, bus, _, _ = reload(s, bus, timer)
	if next, ok := bus.(*countingBus); !ok || next.number != 2 || live.closed != 0 {
		t.Errorf("bus change: bus %v, old closed %d", bus, live.closed)
	}
	if len(opened) != 1 || opened[0] != 2 || s.I2CBus != 2 {
		t.Errorf("bus change opened %v, settings %+v", opened, s)
	}
}
