package main

import (
	"errors"
	"flag"
	"fmt"
	"net/netip"
	"os"
	"path"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type parameters struct {
	logLevel  zapcore.Level
	dbPath    string
	apiBind   string
	interval  time.Duration
	capacity  int
	retention int
}

func newParameters() (*parameters, error) {
	ll := zap.LevelFlag("log-level", zapcore.InfoLevel,
		"Specify the logging level. Supported levels include: DEBUG, INFO, WARN, ERROR, and FATAL.")
	flagDB := flag.String("db", "",
		"Specify the path to the database folder. There is no default value. Please, provide one.")
	flagAPI := flag.String("api", "127.0.0.1:8080",
		"The local network address to bind the HTTP API of the service. The default value is \"127.0.0.1:8080\".")
	flagInterval := flag.Duration("interval", 20*time.Second,
		"The interval between system information samples. The default value is \"20s\".")
	flagCapacity := flag.Int("capacity", 1024,
		"The maximum number of simultaneously allocated handles. "+
			"Zero or a negative value removes the limit. The default value is 1024.")
	flagRetention := flag.Int("retention", 720,
		"The number of most recent system information samples to keep in the journal. "+
			"Zero or a negative value disables trimming. The default value is 720.")
	flag.Parse()
	dbf, err := checkFolder(*flagDB)
	if err != nil {
		return nil, fmt.Errorf("invalid parameters: invalid database folder: %w", err)
	}
	aa, err := checkBind(*flagAPI)
	if err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	iv, err := checkInterval(*flagInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	return &parameters{
		logLevel:  *ll,
		dbPath:    dbf,
		apiBind:   aa,
		interval:  iv,
		capacity:  *flagCapacity,
		retention: *flagRetention,
	}, nil
}

func (p *parameters) log() {
	zap.S().Debugf("Configuration parameters:")
	zap.S().Debugf("\tlogLevel: %s", p.logLevel)
	zap.S().Debugf("\tdbPath: %s", p.dbPath)
	zap.S().Debugf("\tapiBind: %s", p.apiBind)
	zap.S().Debugf("\tinterval: %s", p.interval)
	zap.S().Debugf("\tcapacity: %d", p.capacity)
	zap.S().Debugf("\tretention: %d", p.retention)
}

func checkFolder(str string) (string, error) {
	if str == "" {
		return "", errors.New("empty folder")
	}
	fi, err := os.Stat(str)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("folder does not exist: %s", str)
	}
	if err != nil {
		return "", fmt.Errorf("invalid folder: %w", err)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("not a folder: %s", str)
	}
	return path.Clean(str), nil
}

func checkBind(str string) (string, error) {
	if str == "" {
		return "", errors.New("empty address")
	}
	ap, err := netip.ParseAddrPort(str)
	if err != nil {
		return "", fmt.Errorf("invalid address: %w", err)
	}
	return ap.String(), nil
}

func checkInterval(d time.Duration) (time.Duration, error) {
	if d <= 0 {
		return 0, errors.New("non-positive sampling interval")
	}
	return d, nil
}
