package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/sensors"
)

var errNoTemperature = errors.New("no temperature reading")

var dieTemperaturePattern = regexp.MustCompile(`CPU die temperature: (\d+\.\d+)`)

// hwmon sensor keys that belong to the CPU package, in preference order.
var cpuSensorHints = []string{"x86_pkg_temp", "coretemp", "k10temp", "zenpower", "cpu_thermal"}

func parsePowermetrics(out []byte) (float64, error) {
	m := dieTemperaturePattern.FindSubmatch(out)
	if m == nil {
		return 0, errNoTemperature
	}
	return strconv.ParseFloat(string(m[1]), 64)
}

// parseThermalZone converts a sysfs thermal zone value in millidegrees.
func parseThermalZone(data []byte) (float64, error) {
	raw, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("thermal zone value: %w", err)
	}
	return raw / 1000, nil
}

// parseVcgencmd parses "temp=48.3'C".
func parseVcgencmd(out []byte) (float64, error) {
	s := strings.TrimSpace(string(out))
	if !strings.HasPrefix(s, "temp=") {
		return 0, fmt.Errorf("unexpected vcgencmd output %q", s)
	}
	s, _, _ = strings.Cut(strings.TrimPrefix(s, "temp="), "'")
	return strconv.ParseFloat(s, 64)
}

// parseSensorsJSON returns the first non-zero temp*_input of "sensors -j"
// output, in document order:
//
//	{"coretemp-isa-0000": {"Adapter": "ISA adapter",
//	  "Package id 0": {"temp1_input": 45.000, "temp1_max": 80.000}}}
func parseSensorsJSON(out []byte) (float64, error) {
	chips, err := objectMembers(out)
	if err != nil {
		return 0, fmt.Errorf("sensors output: %w", err)
	}
	for _, chip := range chips {
		features, err := objectMembers(chip.value)
		if err != nil {
			continue
		}
		for _, feature := range features {
			subfeatures, err := objectMembers(feature.value)
			if err != nil {
				continue
			}
			for _, sub := range subfeatures {
				if !strings.HasPrefix(sub.key, "temp") || !strings.HasSuffix(sub.key, "_input") {
					continue
				}
				var v float64
				if err := json.Unmarshal(sub.value, &v); err != nil || v == 0 {
					continue
				}
				return v, nil
			}
		}
	}
	return 0, errNoTemperature
}

type jsonMember struct {
	key   string
	value json.RawMessage
}

// objectMembers decodes one JSON object keeping member order.
func objectMembers(data []byte) ([]jsonMember, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("not a JSON object")
	}

	var members []jsonMember
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		members = append(members, jsonMember{key: key, value: raw})
	}
	return members, nil
}

// pickHwmonTemperature prefers CPU package sensors and otherwise takes the
// first plausible reading. Values outside (0, 200] are sensor noise.
func pickHwmonTemperature(stats []sensors.TemperatureStat) (float64, error) {
	plausible := func(t float64) bool { return t > 0 && t <= 200 }

	for _, hint := range cpuSensorHints {
		for _, s := range stats {
			if strings.Contains(s.SensorKey, hint) && plausible(s.Temperature) {
				return s.Temperature, nil
			}
		}
	}
	for _, s := range stats {
		if plausible(s.Temperature) {
			return s.Temperature, nil
		}
	}
	return 0, errNoTemperature
}
