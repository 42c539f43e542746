package content

import "encoding/json"

// Capabilities is the set of post operations a user may perform.
type Capabilities uint8

const (
	CapRead Capabilities = 1 << iota
	CapCreate
	CapUpdate
	CapDelete
)

var permissionCapabilities = map[string]Capabilities{
	"texts.view_text":   CapRead,
	"texts.add_text":    CapCreate,
	"texts.change_text": CapUpdate,
	"texts.delete_text": CapDelete,
}

var capabilityNames = []struct {
	cap  Capabilities
	name string
}{
	{CapRead, "read"},
	{CapCreate, "create"},
	{CapUpdate, "update"},
	{CapDelete, "delete"},
}

// CapabilitiesFrom maps content API permission codenames onto capabilities.
// Unknown codenames are ignored.
func CapabilitiesFrom(permissions []string) Capabilities {
	var c Capabilities
	for _, p := range permissions {
		c |= permissionCapabilities[p]
	}
	return c
}

// Has reports whether every capability in want is present.
func (c Capabilities) Has(want Capabilities) bool {
	return c&want == want
}

// Names lists the capabilities as lowercase names.
func (c Capabilities) Names() []string {
	names := []string{}
	for _, cn := range capabilityNames {
		if c.Has(cn.cap) {
			names = append(names, cn.name)
		}
	}
	return names
}

func (c Capabilities) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Names())
}
