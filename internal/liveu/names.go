package liveu

// PortNames maps the fixed raw port identifiers to display names
type PortNames struct {
	Ethernet string `mapstructure:"ethernet"`
	WiFi     string `mapstructure:"wifi"`
	Cell1    string `mapstructure:"cell1"`
	Cell2    string `mapstructure:"cell2"`
	USB1     string `mapstructure:"usb1"`
	USB2     string `mapstructure:"usb2"`
}

// DefaultPortNames are the built-in labels
func DefaultPortNames() PortNames {
	return PortNames{
		Ethernet: "ETH",
		WiFi:     "WiFi",
		Cell1:    "Cell1",
		Cell2:    "Cell2",
		USB1:     "USB1",
		USB2:     "USB2",
	}
}

// lookup returns the display name for a raw port, falling back to the
// built-in label for any mapping left empty
func (p *PortNames) lookup(port string) string {
	defaults := DefaultPortNames()
	custom := defaults
	if p != nil {
		custom = *p
	}

	pick := func(c, d string) string {
		if c != "" {
			return c
		}
		return d
	}

	switch port {
	case "eth0":
		return pick(custom.Ethernet, defaults.Ethernet)
	case "wlan0":
		return pick(custom.WiFi, defaults.WiFi)
	case "0":
		return pick(custom.Cell1, defaults.Cell1)
	case "1":
		return pick(custom.Cell2, defaults.Cell2)
	case "2":
		return pick(custom.USB1, defaults.USB1)
	case "3":
		return pick(custom.USB2, defaults.USB2)
	default:
		return port
	}
}

// ApplyCustomNames drops disconnected interfaces and rewrites the port of
// the rest to its display name. A nil mapping uses the built-in labels.
func ApplyCustomNames(interfaces []Interface, names *PortNames) []Interface {
	named := make([]Interface, 0, len(interfaces))
	for _, iface := range interfaces {
		if !iface.Connected {
			continue
		}
		iface.Port = names.lookup(iface.Port)
		named = append(named, iface)
	}
	return named
}
