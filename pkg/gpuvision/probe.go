package gpuvision

import (
	"os"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

// NoAccelEnv names the environment variable that forces the reference path
// regardless of the devices present.
const NoAccelEnv = "GPUVISION_NO_ACCEL"

var (
	modeOnce    sync.Once
	processMode ExecutionMode
)

// DetectExecutionMode probes for an accelerated device on first use and
// returns the same answer for the rest of the process.
func DetectExecutionMode() ExecutionMode {
	modeOnce.Do(func() {
		processMode = probeMode(os.Getenv(NoAccelEnv), acceleratorDeviceCount)
	})
	return processMode
}

func probeMode(noAccel string, deviceCount func() int) ExecutionMode {
	if envEnabled(noAccel) {
		Logger().WithField("env", NoAccelEnv).Warn("acceleration disabled by environment")
		return ModeReference
	}
	n := deviceCount()
	mode := ModeReference
	if n > 0 {
		mode = ModeAccelerated
	}
	Logger().WithFields(logrus.Fields{
		"devices": n,
		"mode":    mode.String(),
	}).Info("execution mode selected")
	return mode
}

// envEnabled treats any non-empty value as true unless it parses as a false
// boolean.
func envEnabled(val string) bool {
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}
