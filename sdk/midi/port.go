package midi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leandrodaf/improv/sdk/contracts"
)

// ErrNoMatchingPort is returned when no output port name contains the requested substring.
var ErrNoMatchingPort = errors.New("cannot find proper output ports")

// MatchPorts returns every port whose name contains substr.
func MatchPorts(ports []contracts.PortInfo, substr string) []contracts.PortInfo {
	var matched []contracts.PortInfo
	for _, p := range ports {
		if strings.Contains(p.Name, substr) {
			matched = append(matched, p)
		}
	}
	return matched
}

// PortNames lists the names of ports, in order.
func PortNames(ports []contracts.PortInfo) []string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	return names
}

// OpenMatching opens the first output whose name contains substr and returns
// every matching port. The error lists the available names when nothing matches.
func OpenMatching(client contracts.OutputMIDI, substr string) ([]contracts.PortInfo, error) {
	ports, err := client.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMatchingPort, err)
	}

	matched := MatchPorts(ports, substr)
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w in: %q", ErrNoMatchingPort, PortNames(ports))
	}

	if err := client.OpenPort(matched[0].ID); err != nil {
		return nil, fmt.Errorf("open output %q: %w", matched[0].Name, err)
	}
	return matched, nil
}
