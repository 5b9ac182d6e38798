// Package batch recovers many encrypt_companion_device captures at once.
//
// Captures are listed in a YAML manifest. A shared authkey may be given at
// the top level and overridden per capture:
//
//	authkey: 0123456789abcdeffedcba9876543210
//	captures:
//	  - name: pairing-1
//	    phone_random: b64:c2FtcGxlcGhvbmVub25jZQ==
//	    watch_random: hex:00112233445566778899aabbccddeeff
//	    ciphertext: KrHIRjgsSIVm...
//
// Encodings are not checked at load time; each capture is decoded when it
// runs so one bad capture does not prevent the others from being recovered.
package batch

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/astrobox/companion/pkg/companion"
	"gopkg.in/yaml.v3"
)

// Manifest is a set of captures to recover.
type Manifest struct {
	// AuthKey is used by captures that do not set their own.
	AuthKey string `yaml:"authkey,omitempty"`

	Captures []Capture `yaml:"captures"`
}

// Capture is one encrypt_companion_device payload and its handshake inputs.
type Capture struct {
	// Name identifies the capture in results. Defaults to "capture-<n>"
	// (1-based).
	Name        string `yaml:"name,omitempty"`
	AuthKey     string `yaml:"authkey,omitempty"`
	PhoneRandom string `yaml:"phone_random"`
	WatchRandom string `yaml:"watch_random"`
	Ciphertext  string `yaml:"ciphertext"`
}

// LoadError reports a manifest that could not be read or is incomplete.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Encoded returns the textual inputs of capture i with the shared authkey
// applied.
func (m *Manifest) Encoded(i int) companion.Encoded {
	c := m.Captures[i]
	authKey := c.AuthKey
	if authKey == "" {
		authKey = m.AuthKey
	}
	return companion.Encoded{
		AuthKey:     authKey,
		PhoneRandom: c.PhoneRandom,
		WatchRandom: c.WatchRandom,
		Ciphertext:  c.Ciphertext,
	}
}

// ParseManifest parses a manifest from YAML bytes.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &LoadError{
			Message: "failed to parse YAML",
			Cause:   err,
		}
	}

	if len(m.Captures) == 0 {
		return nil, &LoadError{
			Message: "manifest must list at least one capture",
		}
	}

	seen := make(map[string]int, len(m.Captures))
	for i := range m.Captures {
		c := &m.Captures[i]
		if c.Name == "" {
			c.Name = fmt.Sprintf("capture-%d", i+1)
		}
		if err := validateCapture(c, m.AuthKey); err != nil {
			return nil, &LoadError{
				Message: fmt.Sprintf("capture %d (%s)", i+1, c.Name),
				Cause:   err,
			}
		}
		if prev, ok := seen[c.Name]; ok {
			return nil, &LoadError{
				Message: fmt.Sprintf("capture %d reuses the name %q of capture %d", i+1, c.Name, prev+1),
			}
		}
		seen[c.Name] = i
	}

	return &m, nil
}

// LoadManifest loads a manifest from a file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	m, err := ParseManifest(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{
			File:    path,
			Message: err.Error(),
		}
	}

	return m, nil
}

func validateCapture(c *Capture, sharedAuthKey string) error {
	switch {
	case c.AuthKey == "" && sharedAuthKey == "":
		return errors.New("no authkey and no shared authkey")
	case c.PhoneRandom == "":
		return errors.New("phone_random is required")
	case c.WatchRandom == "":
		return errors.New("watch_random is required")
	case c.Ciphertext == "":
		return errors.New("ciphertext is required")
	}
	// Names become file names when plaintexts are written to a directory.
	if strings.ContainsAny(c.Name, `/\`) || c.Name == "." || c.Name == ".." {
		return fmt.Errorf("name %q is not usable as a file name", c.Name)
	}
	return nil
}
