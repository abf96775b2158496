// Command system-control is the handvol plugin that drives the OS mixer.
// It uses osascript on macOS and pactl on Linux.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
)

type request struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

type response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type params struct {
	Level int `json:"level"`
	Step  int `json:"step"`
}

type volumeData struct {
	Volume int `json:"volume"`
}

const defaultStep = 2

var errUnsupportedOS = fmt.Errorf("unsupported platform %s", runtime.GOOS)

type mixer interface {
	get() (int, error)
	set(level int) error
	toggleMute() error
}

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		reply(response{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}

	var p params
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			reply(response{Error: fmt.Sprintf("decode params: %v", err)})
			return
		}
	}
	if p.Step <= 0 {
		p.Step = defaultStep
	}

	m, err := platformMixer()
	if err != nil {
		reply(response{Error: err.Error()})
		return
	}

	level, err := handle(m, req.Action, p)
	if err != nil {
		reply(response{Error: fmt.Sprintf("%s: %v", req.Action, err)})
		return
	}
	reply(response{Success: true, Data: volumeData{Volume: level}})
}

func handle(m mixer, action string, p params) (int, error) {
	switch action {
	case "volume-get":
		return m.get()
	case "volume-set":
		return applyLevel(m, p.Level)
	case "volume-up", "volume-down":
		cur, err := m.get()
		if err != nil {
			return 0, err
		}
		if action == "volume-down" {
			return applyLevel(m, cur-p.Step)
		}
		return applyLevel(m, cur+p.Step)
	case "volume-mute":
		if err := m.toggleMute(); err != nil {
			return 0, err
		}
		return m.get()
	default:
		return 0, errors.New("unknown action")
	}
}

func applyLevel(m mixer, level int) (int, error) {
	level = max(0, min(100, level))
	if err := m.set(level); err != nil {
		return 0, err
	}
	return level, nil
}

func reply(resp response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

func platformMixer() (mixer, error) {
	switch runtime.GOOS {
	case "darwin":
		return appleMixer{}, nil
	case "linux":
		return pulseMixer{}, nil
	default:
		return nil, errUnsupportedOS
	}
}

func run(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

type appleMixer struct{}

func (appleMixer) get() (int, error) {
	out, err := run("osascript", "-e", "output volume of (get volume settings)")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(out)
}

func (appleMixer) set(level int) error {
	_, err := run("osascript", "-e", fmt.Sprintf("set volume output volume %d", level))
	return err
}

func (appleMixer) toggleMute() error {
	_, err := run("osascript", "-e", "set volume output muted (not (output muted of (get volume settings)))")
	return err
}

type pulseMixer struct{}

var percentRe = regexp.MustCompile(`(\d+)%`)

func (pulseMixer) get() (int, error) {
	out, err := run("pactl", "get-sink-volume", "@DEFAULT_SINK@")
	if err != nil {
		return 0, err
	}
	m := percentRe.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("no volume in %q", out)
	}
	return strconv.Atoi(m[1])
}

func (pulseMixer) set(level int) error {
	_, err := run("pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("%d%%", level))
	return err
}

func (pulseMixer) toggleMute() error {
	_, err := run("pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle")
	return err
}
