package contracts

// PortInfo describes a MIDI output port visible to the system.
type PortInfo struct {
	ID           int    // Index of the port as reported by the driver.
	Name         string // Port name, matched against the configured substring.
	Manufacturer string // Port manufacturer, when the driver reports one.
	EntityName   string // Name of the entity (device) that owns the port.
}
