/*
	Copyright (c) 2023 Adrian Batzill
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	logging.go: Tee the log to a file, rotate it by size, delete old logs when the disk fills up

*/

package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/ricochet2200/go-disk-usage/du"
)

const (
	debugLogFile = "altimeter.log"

	maxLogSize   = 10 * 1024 * 1024 // rotate above this
	minFreeSpace = 50 * 1024 * 1024 // delete old logs below this
	maxLogFiles  = 9
)

var (
	logDirf       string
	debugLogf     string
	logFileHandle *os.File
)

func getLogFiles() []string {
	entries, err := os.ReadDir(logDirf)
	logs := make([]string, 0)
	if err != nil {
		return logs
	}

	for _, e := range entries {
		if strings.HasPrefix(e.Name(), debugLogFile+".") {
			logs = append(logs, filepath.Join(logDirf, e.Name()))
		}
	}
	// altimeter.log.1 is the newest
	sort.Slice(logs, func(i, j int) bool {
		return logSuffix(logs[i]) < logSuffix(logs[j])
	})
	return logs
}

func logSuffix(path string) int {
	n, err := strconv.Atoi(path[strings.LastIndex(path, ".")+1:])
	if err != nil {
		return 0
	}
	return n
}

func rotateLogs() {
	logs := getLogFiles()

	// rename suffix, remove if > maxLogFiles
	for i := len(logs) - 1; i >= 0; i-- {
		logNum := logSuffix(logs[i])
		if logNum == 0 {
			continue
		}
		if logNum >= maxLogFiles {
			os.Remove(logs[i])
		} else {
			os.Rename(logs[i], filepath.Join(logDirf, debugLogFile+"."+strconv.Itoa(logNum+1)))
		}
	}

	// Now rename current log file and re-open
	os.Rename(debugLogf, debugLogf+".1")
	openLogFile()
}

func deleteOldestLog() int64 {
	logs := getLogFiles()
	if len(logs) == 0 {
		return 0
	}
	oldest := logs[len(logs)-1]
	stat, err := os.Stat(oldest)
	if err != nil {
		return 0
	}
	if err := os.Remove(oldest); err != nil {
		return 0
	}
	log.Printf("deleted %s (%s) to free disk space\n", oldest, humanize.Bytes(uint64(stat.Size())))
	return stat.Size()
}

func logFileWatcher() {
	for {
		logSize, err := os.Stat(debugLogf)
		if err == nil && logSize.Size() > maxLogSize {
			log.Printf("rotating %s at %s\n", debugLogf, humanize.Bytes(uint64(logSize.Size())))
			rotateLogs()
		}

		usage := du.NewDiskUsage(logDirf)
		freeBytes := int64(usage.Free())
		for freeBytes < minFreeSpace {
			deleted := deleteOldestLog()
			if deleted == 0 {
				break
			}
			freeBytes += deleted
		}

		time.Sleep(30 * time.Second)
	}
}

func openLogFile() {
	oldFp := logFileHandle
	debugLogf = filepath.Join(logDirf, debugLogFile)
	fp, err := os.OpenFile(debugLogf, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Failed to open '%s': %s\n", debugLogf, err.Error())
	} else {
		// Keep the logfile handle for later use
		logFileHandle = fp
		log.SetOutput(io.MultiWriter(fp, os.Stdout))
	}
	if oldFp != nil {
		oldFp.Close()
	}
}

func initLogging(dir string) {
	logDirf = dir
	openLogFile()
	go logFileWatcher()
}

func logDbg(msg string, args ...any) {
	if currentSettings().DEBUG {
		log.Printf(msg, args...)
	}
}
