package halclient

import (
	stdjson "encoding/json"

	json "github.com/goccy/go-json"
)

// RawMessage is a raw encoded JSON value (the state of a resource field).
type RawMessage = json.RawMessage

// JSONDriver performs the byte-level JSON work for envelopes and bodies. The
// default implementation is backed by goccy/go-json; StdJSON is available for
// comparison and for environments that prefer encoding/json semantics.
//
// Drivers are carried by MapperConfig and HTTPConfig rather than installed
// globally.
type JSONDriver interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// GoJSON returns the go-json backed driver.
func GoJSON() JSONDriver { return goJSONDriver{} }

// StdJSON returns the encoding/json backed driver.
func StdJSON() JSONDriver { return stdJSONDriver{} }

// JSONDriverByName returns the driver registered under name ("go-json" or
// "encoding/json"); unknown names yield the default.
func JSONDriverByName(name string) JSONDriver {
	switch name {
	case "encoding/json", "std":
		return StdJSON()
	default:
		return GoJSON()
	}
}

type goJSONDriver struct{}

func (goJSONDriver) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (goJSONDriver) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (goJSONDriver) Name() string                       { return "go-json" }

type stdJSONDriver struct{}

func (stdJSONDriver) Marshal(v any) ([]byte, error)      { return stdjson.Marshal(v) }
func (stdJSONDriver) Unmarshal(data []byte, v any) error { return stdjson.Unmarshal(data, v) }
func (stdJSONDriver) Name() string                       { return "encoding/json" }

func driverOrDefault(d JSONDriver) JSONDriver {
	if d == nil {
		return GoJSON()
	}
	return d
}
