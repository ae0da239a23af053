// Package audio discovers input devices and records utterances to WAV files.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns available Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves audio.input/audio.fallback preferences against live devices.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// preference is one configured device term; "" and "default" mean the default source.
type preference string

func newPreference(raw string) preference {
	return preference(strings.ToLower(strings.TrimSpace(raw)))
}

func (p preference) isDefault() bool {
	return p == "" || p == "default"
}

// resolve returns the first device matching p, or the default source.
func (p preference) resolve(devices []Device) (Device, bool) {
	for _, dev := range devices {
		if p.isDefault() && dev.Default {
			return dev, true
		}
		if !p.isDefault() && deviceMatches(dev, string(p)) {
			return dev, true
		}
	}
	return Device{}, false
}

// unusable names why a device cannot record, or "" when it can.
func unusable(dev Device) string {
	switch {
	case !dev.Available:
		return "unavailable"
	case dev.Muted:
		return "muted"
	default:
		return ""
	}
}

// selectDeviceFromList picks audio.input, or audio.fallback when the input is
// unavailable or muted.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	primaryPref := newPreference(input)
	primary, ok := primaryPref.resolve(devices)
	switch {
	case !ok && primaryPref.isDefault():
		return Selection{}, errors.New("default audio source is unavailable")
	case !ok:
		return Selection{}, fmt.Errorf("audio.input %q did not match any device", string(primaryPref))
	}

	reason := unusable(primary)
	if reason == "" {
		return Selection{Device: primary}, nil
	}

	fallbackPref := newPreference(fallback)
	alternate, ok := fallbackPref.resolve(devices)
	switch {
	case !ok && fallbackPref.isDefault():
		return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback: default audio source is unavailable", primary.ID, reason)
	case !ok:
		return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, reason, string(fallbackPref))
	}
	if why := unusable(alternate); why != "" {
		return Selection{}, fmt.Errorf("audio fallback device %q is %s", alternate.ID, why)
	}

	return Selection{
		Device:   alternate,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, alternate.ID),
		Fallback: primary.ID != alternate.ID,
	}, nil
}

// deviceMatches reports whether a lowercase term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voxtask"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// Describe formats device metadata for logs and status output.
func Describe(device Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse source port availability to a simple boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
