package terminal

import (
	"encoding/hex"
	"io/ioutil"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Script describes how the simulated terminal answers traffic. All byte
// sequences are hex strings; spaces are allowed for readability.
type Script struct {
	// Ack is sent in response to every received command
	Ack string `yaml:"ack"`

	// AckDelayMs delays the ack, to exercise acknowledge timeouts
	AckDelayMs int `yaml:"ack_delay_ms"`

	// StatusPackets are unsolicited packets sent after the ack
	StatusPackets []StatusPacket `yaml:"status_packets"`
}

// StatusPacket is one unsolicited packet pushed by the simulated terminal.
type StatusPacket struct {
	Hex     string `yaml:"hex"`
	DelayMs int    `yaml:"delay_ms"`
}

// DefaultScript acknowledges every command positively and pushes nothing.
func DefaultScript() *Script {
	return &Script{Ack: "80 00 00"}
}

// LoadScript reads a YAML script from path.
func LoadScript(path string) (*Script, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read script %s", path)
	}

	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "parse script %s", path)
	}

	if _, err := s.AckBytes(); err != nil {
		return nil, err
	}
	for _, sp := range s.StatusPackets {
		if _, err := parseHex(sp.Hex); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// AckBytes returns the decoded ack sequence.
func (s *Script) AckBytes() ([]byte, error) {
	return parseHex(s.Ack)
}

// AckDelay returns the configured ack delay.
func (s *Script) AckDelay() time.Duration {
	return time.Duration(s.AckDelayMs) * time.Millisecond
}

// Bytes returns the decoded packet.
func (sp StatusPacket) Bytes() ([]byte, error) {
	return parseHex(sp.Hex)
}

// Delay returns the configured packet delay.
func (sp StatusPacket) Delay() time.Duration {
	return time.Duration(sp.DelayMs) * time.Millisecond
}

func parseHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid hex %q", s)
	}
	return b, nil
}
